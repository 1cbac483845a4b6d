package waitlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

// SubmitInput is the public community-creation request.
type SubmitInput struct {
	Name          string  `json:"name" validate:"required,min=2,max=120"`
	Email         string  `json:"email" validate:"required,email"`
	CommunityName string  `json:"community_name" validate:"required,min=2,max=80"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ReviewInput carries a platform admin decision.
type ReviewInput struct {
	Status enums.WaitlistStatus `json:"status" validate:"required,enum"`
}

// RequestDTO is the API view of a waitlist request.
type RequestDTO struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	CommunityName string               `json:"community_name"`
	Description   *string              `json:"description,omitempty"`
	Status        enums.WaitlistStatus `json:"status"`
	CommunityID   *uuid.UUID           `json:"community_id,omitempty"`
	CommunitySlug string               `json:"community_slug,omitempty"`
	ReviewedAt    *time.Time           `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// RequestPage is a cursor page of waitlist requests.
type RequestPage struct {
	Requests   []RequestDTO `json:"requests"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toDTO(m *models.WaitlistRequest) RequestDTO {
	return RequestDTO{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		CommunityName: m.CommunityName,
		Description:   m.Description,
		Status:        m.Status,
		CommunityID:   m.CommunityID,
		ReviewedAt:    m.ReviewedAt,
		CreatedAt:     m.CreatedAt,
	}
}
