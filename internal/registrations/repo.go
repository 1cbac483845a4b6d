package registrations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

// Repository persists registrations and answers the access questions the
// registration flows ask.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) FindCommunity(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *Repository) FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ExistsForUser reports whether the user already holds a registration for the event.
func (r *Repository) ExistsForUser(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EventRegistration{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

// CountTowardsCapacity counts approved rows when approvedOnly is set, every row otherwise.
func (r *Repository) CountTowardsCapacity(ctx context.Context, eventID uuid.UUID, approvedOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.EventRegistration{}).Where("event_id = ?", eventID)
	if approvedOnly {
		query = query.Where("approval_status = ?", enums.ApprovalStatusApproved)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *Repository) Create(ctx context.Context, reg *models.EventRegistration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) FindByToken(ctx context.Context, token string) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	if err := r.db.WithContext(ctx).Where("verification_token = ?", token).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

// ConsumeToken verifies the registration only while it still holds token.
// A false result means another request consumed it first.
func (r *Repository) ConsumeToken(ctx context.Context, id uuid.UUID, token string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.EventRegistration{}).
		Where("id = ? AND verification_token = ? AND is_verified = ?", id, token, false).
		Updates(map[string]any{
			"is_verified":        true,
			"verification_token": nil,
			"token_expires_at":   nil,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) UpdateApproval(ctx context.Context, id uuid.UUID, status enums.ApprovalStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.EventRegistration{}).
		Where("id = ?", id).
		Updates(map[string]any{"approval_status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetAttended stamps or clears attended_at.
func (r *Repository) SetAttended(ctx context.Context, id uuid.UUID, at *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.EventRegistration{}).
		Where("id = ?", id).
		Updates(map[string]any{"attended_at": at, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.EventRegistration{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteExpiredUnverified removes anonymous rows whose token expired before cutoff.
func (r *Repository) DeleteExpiredUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id IS NULL AND is_verified = ? AND token_expires_at IS NOT NULL AND token_expires_at < ?", false, cutoff).
		Delete(&models.EventRegistration{})
	return res.RowsAffected, res.Error
}

// IsOrganizer reports whether the user is an owner or admin of the hosting
// community or of a community with an accepted collaboration on the event.
func (r *Repository) IsOrganizer(ctx context.Context, userID uuid.UUID, event *models.Event) (bool, error) {
	accepted := r.db.
		Model(&models.EventCollaboration{}).
		Select("community_id").
		Where("event_id = ? AND status = ?", event.ID, enums.CollaborationStatusAccepted)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("user_id = ? AND role IN ?", userID, enums.ManagerRoles()).
		Where("(community_id = ?) OR (community_id IN (?))", event.CommunityID, accepted).
		Count(&count).Error
	return count > 0, err
}

type registrationRow struct {
	models.EventRegistration
	ProfileEmail *string `gorm:"column:profile_email"`
	ProfileName  *string `gorm:"column:profile_name"`
}

// List returns registrations oldest-first with profile contact data.
func (r *Repository) List(ctx context.Context, eventID uuid.UUID, filter ListFilter, params pagination.Params) ([]registrationRow, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.EventRegistration{}).
		Select("event_registrations.*, profiles.email AS profile_email, profiles.full_name AS profile_name").
		Joins("LEFT JOIN profiles ON profiles.id = event_registrations.user_id").
		Where("event_registrations.event_id = ?", eventID)
	if filter.ApprovalStatus != nil {
		query = query.Where("event_registrations.approval_status = ?", *filter.ApprovalStatus)
	}
	if filter.VerifiedOnly {
		query = query.Where("event_registrations.is_verified = ?", true)
	}
	query, limit, err := pagination.Apply(query, pagination.Keyset{
		Column:   "event_registrations.registered_at",
		IDColumn: "event_registrations.id",
	}, params)
	if err != nil {
		return nil, "", err
	}

	var rows []registrationRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, limit, func(row registrationRow) pagination.Cursor {
		return pagination.Cursor{At: row.RegisteredAt, ID: row.ID}
	})
	return rows, next, nil
}
