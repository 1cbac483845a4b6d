package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

// Repository persists scheduled reminders.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnqueueDue materializes reminder rows for every published upcoming event.
// Postgres runs the enqueue_event_reminders() function; other drivers use
// EnqueueFromOffsets.
func (r *Repository) EnqueueDue(ctx context.Context, now time.Time) (int, error) {
	if r.db.Dialector.Name() != "postgres" {
		return r.EnqueueFromOffsets(ctx, now)
	}
	var inserted int
	if err := r.db.WithContext(ctx).Raw("SELECT enqueue_event_reminders()").Scan(&inserted).Error; err != nil {
		return 0, err
	}
	return inserted, nil
}

// EnqueueFromOffsets inserts one row per (event, offset), skipping pairs that
// already exist and offsets that do not parse.
func (r *Repository) EnqueueFromOffsets(ctx context.Context, now time.Time) (int, error) {
	var upcoming []models.Event
	err := r.db.WithContext(ctx).
		Select("id", "start_time", "notification_offsets").
		Where("status = ? AND start_time > ?", enums.EventStatusPublished, now).
		Find(&upcoming).Error
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, e := range upcoming {
		for _, offset := range e.NotificationOffsets {
			lead, err := events.ParseOffset(offset)
			if err != nil {
				continue
			}
			res := r.db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.EventReminder{
					EventID:    e.ID,
					SendAt:     e.StartTime.Add(-lead),
					SendOffset: offset,
				})
			if res.Error != nil {
				return inserted, res.Error
			}
			inserted += int(res.RowsAffected)
		}
	}
	return inserted, nil
}

// Due returns unsent reminders whose send time has passed, oldest first.
func (r *Repository) Due(ctx context.Context, now time.Time, limit int) ([]models.EventReminder, error) {
	var rows []models.EventReminder
	err := r.db.WithContext(ctx).
		Where("sent = ? AND send_at <= ?", false, now).
		Order("send_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) CommunitySlug(ctx context.Context, communityID uuid.UUID) (string, error) {
	var community models.Community
	err := r.db.WithContext(ctx).Select("slug").First(&community, "id = ?", communityID).Error
	return community.Slug, err
}

// MarkSent flags the reminder as delivered.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.EventReminder{}).
		Where("id = ?", id).
		Updates(map[string]any{"sent": true, "sent_at": at}).Error
}
