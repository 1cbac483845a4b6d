package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CountMembers(ctx context.Context, communityID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).
		Count(&n).Error
	return n, err
}

// MemberJoins returns join timestamps at or after since.
func (r *Repository) MemberJoins(ctx context.Context, communityID uuid.UUID, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ? AND joined_at >= ?", communityID, since).
		Order("joined_at").
		Pluck("joined_at", &out).Error
	return out, err
}

// Visits returns the recorded visits on or after since.
func (r *Repository) Visits(ctx context.Context, communityID uuid.UUID, since time.Time) ([]models.CommunityVisit, error) {
	var out []models.CommunityVisit
	err := r.db.WithContext(ctx).
		Select("visitor_key", "visited_on").
		Where("community_id = ? AND visited_on >= ?", communityID, since).
		Find(&out).Error
	return out, err
}

type eventCounts struct {
	Total     int64 `gorm:"column:total"`
	Published int64 `gorm:"column:published"`
}

func (r *Repository) EventCounts(ctx context.Context, communityID uuid.UUID) (int64, int64, error) {
	var counts eventCounts
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS published", enums.EventStatusPublished).
		Where("community_id = ?", communityID).
		Scan(&counts).Error
	return counts.Total, counts.Published, err
}

// RegistrationCounts aggregates registrations across the community's events.
type RegistrationCounts struct {
	Total            int64 `gorm:"column:total"`
	Approved         int64 `gorm:"column:approved"`
	Rejected         int64 `gorm:"column:rejected"`
	ApprovedVerified int64 `gorm:"column:approved_verified"`
	Attended         int64 `gorm:"column:attended"`
}

func (r *Repository) RegistrationCounts(ctx context.Context, communityID uuid.UUID) (RegistrationCounts, error) {
	var counts RegistrationCounts
	err := r.db.WithContext(ctx).
		Table("event_registrations AS er").
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN er.approval_status = ? THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN er.approval_status = ? THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN er.approval_status = ? AND er.is_verified = ? THEN 1 ELSE 0 END), 0) AS approved_verified,
			COALESCE(SUM(CASE WHEN er.attended_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS attended`,
			enums.ApprovalStatusApproved, enums.ApprovalStatusRejected, enums.ApprovalStatusApproved, true).
		Joins("JOIN events e ON e.id = er.event_id").
		Where("e.community_id = ?", communityID).
		Scan(&counts).Error
	return counts, err
}
