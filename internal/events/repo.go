package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

// Repository persists events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Save writes every column of the event.
func (r *Repository) Save(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// SaveRescheduled writes the event and drops its unsent reminders so the next
// enqueue pass recomputes their send times from the new start.
func (r *Repository) SaveRescheduled(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(event).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ? AND sent = ?", event.ID, false).
			Delete(&models.EventReminder{}).Error
	})
}

// TransitionStatus moves the event from one status to another and reports
// whether the row was in the expected state.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.EventStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListByCommunity returns events in start-time order. The cursor's timestamp
// carries the start time of the last row.
func (r *Repository) ListByCommunity(ctx context.Context, communityID uuid.UUID, publishedOnly bool, params pagination.Params) ([]models.Event, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{}).Where("community_id = ?", communityID)
	if publishedOnly {
		query = query.Where("status = ?", enums.EventStatusPublished)
	}
	query, limit, err := pagination.Apply(query, pagination.Keyset{Column: "start_time"}, params)
	if err != nil {
		return nil, "", err
	}

	var rows []models.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, limit, func(event models.Event) pagination.Cursor {
		return pagination.Cursor{At: event.StartTime, ID: event.ID}
	})
	return rows, next, nil
}

// CountRegistrations counts every registration row of the event.
func (r *Repository) CountRegistrations(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EventRegistration{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}
