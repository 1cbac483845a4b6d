package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	"github.com/luhive/luhive-backend/pkg/pagination"
)

// ErrAlreadyReviewed is returned when a request left the pending state
// between load and update.
var ErrAlreadyReviewed = errors.New("waitlist request already reviewed")

// Repository persists waitlist requests and the communities they spawn.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, req *models.WaitlistRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WaitlistRequest, error) {
	var req models.WaitlistRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns newest-first requests, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *enums.WaitlistStatus, params pagination.Params) ([]models.WaitlistRequest, string, error) {
	query := r.db.WithContext(ctx).Model(&models.WaitlistRequest{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	query, limit, err := pagination.Apply(query, pagination.Keyset{Column: "created_at", Desc: true}, params)
	if err != nil {
		return nil, "", err
	}

	var rows []models.WaitlistRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, limit, func(req models.WaitlistRequest) pagination.Cursor {
		return pagination.Cursor{At: req.CreatedAt, ID: req.ID}
	})
	return rows, next, nil
}

// SlugExists reports whether a community already uses slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Community{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// Approve creates the community, seats the owner when known, and closes the
// request in one transaction.
func (r *Repository) Approve(ctx context.Context, requestID uuid.UUID, community *models.Community, ownerID *uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		if ownerID != nil {
			member := &models.CommunityMember{
				CommunityID: community.ID,
				UserID:      *ownerID,
				Role:        enums.CommunityRoleOwner,
			}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
		}
		return closeRequest(tx, requestID, map[string]any{
			"status":       enums.WaitlistStatusApproved,
			"community_id": community.ID,
			"reviewed_at":  at,
		})
	})
}

// Reject closes a pending request.
func (r *Repository) Reject(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	return closeRequest(r.db.WithContext(ctx), requestID, map[string]any{
		"status":      enums.WaitlistStatusRejected,
		"reviewed_at": at,
	})
}

func closeRequest(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	res := tx.Model(&models.WaitlistRequest{}).
		Where("id = ? AND status = ?", id, enums.WaitlistStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyReviewed
	}
	return nil
}
