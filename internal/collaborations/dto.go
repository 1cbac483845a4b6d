package collaborations

import (
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// InviteRequest names the community to invite as co-host, by id or slug.
type InviteRequest struct {
	CommunityID   *uuid.UUID `json:"community_id,omitempty"`
	CommunitySlug string     `json:"community_slug,omitempty" validate:"omitempty,max=80,slug"`
}

// RespondRequest accepts or declines a pending invitation.
type RespondRequest struct {
	Accept bool `json:"accept"`
}

type CollaborationDTO struct {
	ID            uuid.UUID                 `json:"id"`
	EventID       uuid.UUID                 `json:"event_id"`
	CommunityID   uuid.UUID                 `json:"community_id"`
	CommunitySlug string                    `json:"community_slug,omitempty"`
	CommunityName string                    `json:"community_name,omitempty"`
	Role          enums.CollaborationRole   `json:"role"`
	Status        enums.CollaborationStatus `json:"status"`
	InvitedBy     uuid.UUID                 `json:"invited_by"`
	RespondedAt   *time.Time                `json:"responded_at,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}
