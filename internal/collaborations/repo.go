package collaborations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

// Repository persists event collaborations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, collab *models.EventCollaboration) error {
	return r.db.WithContext(ctx).Create(collab).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.EventCollaboration, error) {
	var collab models.EventCollaboration
	if err := r.db.WithContext(ctx).First(&collab, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &collab, nil
}

// Respond moves a pending collaboration to status. It returns false when the
// row was already answered.
func (r *Repository) Respond(ctx context.Context, id uuid.UUID, status enums.CollaborationStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.EventCollaboration{}).
		Where("id = ? AND status = ?", id, enums.CollaborationStatusPending).
		Updates(map[string]any{"status": status, "responded_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type collaborationRow struct {
	models.EventCollaboration
	CommunitySlug string `gorm:"column:community_slug"`
	CommunityName string `gorm:"column:community_name"`
}

// ListByEvent returns the event's collaborations, optionally only accepted ones.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, acceptedOnly bool) ([]CollaborationDTO, error) {
	query := r.db.WithContext(ctx).
		Model(&models.EventCollaboration{}).
		Select("event_collaborations.*, communities.slug AS community_slug, communities.name AS community_name").
		Joins("JOIN communities ON communities.id = event_collaborations.community_id").
		Where("event_collaborations.event_id = ?", eventID)
	if acceptedOnly {
		query = query.Where("event_collaborations.status = ?", enums.CollaborationStatusAccepted)
	}
	var rows []collaborationRow
	if err := query.Order("event_collaborations.created_at").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]CollaborationDTO, 0, len(rows))
	for i := range rows {
		dto := toDTO(&rows[i].EventCollaboration)
		dto.CommunitySlug = rows[i].CommunitySlug
		dto.CommunityName = rows[i].CommunityName
		out = append(out, dto)
	}
	return out, nil
}

func toDTO(c *models.EventCollaboration) CollaborationDTO {
	return CollaborationDTO{
		ID:          c.ID,
		EventID:     c.EventID,
		CommunityID: c.CommunityID,
		Role:        c.Role,
		Status:      c.Status,
		InvitedBy:   c.InvitedBy,
		RespondedAt: c.RespondedAt,
		CreatedAt:   c.CreatedAt,
	}
}
