package communities

import (
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

// CommunityDTO is the public shape of a community.
type CommunityDTO struct {
	ID          uuid.UUID      `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Tagline     *string        `json:"tagline,omitempty"`
	Description *string        `json:"description,omitempty"`
	LogoURL     *string        `json:"logo_url,omitempty"`
	CoverURL    *string        `json:"cover_url,omitempty"`
	SocialLinks map[string]any `json:"social_links,omitempty"`
	IsPublic    bool           `json:"is_public"`
	IsVerified  bool           `json:"is_verified"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CommunityDetail adds viewer-specific data to the community.
type CommunityDetail struct {
	CommunityDTO
	MemberCount int64                `json:"member_count"`
	ViewerRole  *enums.CommunityRole `json:"viewer_role,omitempty"`
}

// UpdateCommunityInput carries owner/admin edits; nil fields are untouched.
type UpdateCommunityInput struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=2,max=80"`
	Tagline     *string        `json:"tagline,omitempty" validate:"omitempty,max=140"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=5000"`
	LogoURL     *string        `json:"logo_url,omitempty" validate:"omitempty,url"`
	CoverURL    *string        `json:"cover_url,omitempty" validate:"omitempty,url"`
	SocialLinks map[string]any `json:"social_links,omitempty"`
	IsPublic    *bool          `json:"is_public,omitempty"`
}

// MemberDTO mixes membership metadata with the member's profile.
type MemberDTO struct {
	ID          uuid.UUID           `json:"id"`
	CommunityID uuid.UUID           `json:"community_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Role        enums.CommunityRole `json:"role"`
	FullName    string              `json:"full_name,omitempty"`
	AvatarURL   *string             `json:"avatar_url,omitempty"`
	JoinedAt    time.Time           `json:"joined_at"`
}

// MemberPage is a cursor page of members.
type MemberPage struct {
	Members    []MemberDTO `json:"members"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// InviteInput is the body of a community invite.
type InviteInput struct {
	Email string              `json:"email" validate:"required,email"`
	Role  enums.CommunityRole `json:"role" validate:"required,enum"`
}

// InviteDTO describes a created invite. The token is only sent by email.
type InviteDTO struct {
	ID          uuid.UUID           `json:"id"`
	CommunityID uuid.UUID           `json:"community_id"`
	Email       string              `json:"email"`
	Role        enums.CommunityRole `json:"role"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// Manager is an owner or admin with addressing data.
type Manager struct {
	UserID   uuid.UUID
	Role     enums.CommunityRole
	Email    string
	FullName string
}

func ToDTO(c *models.Community) *CommunityDTO {
	if c == nil {
		return nil
	}
	var links map[string]any
	if len(c.SocialLinks) > 0 {
		links = map[string]any(c.SocialLinks)
	}
	return &CommunityDTO{
		ID:          c.ID,
		Slug:        c.Slug,
		Name:        c.Name,
		Tagline:     c.Tagline,
		Description: c.Description,
		LogoURL:     c.LogoURL,
		CoverURL:    c.CoverURL,
		SocialLinks: links,
		IsPublic:    c.IsPublic,
		IsVerified:  c.IsVerified,
		CreatedAt:   c.CreatedAt,
	}
}

func memberToDTO(m *models.CommunityMember) *MemberDTO {
	if m == nil {
		return nil
	}
	return &MemberDTO{
		ID:          m.ID,
		CommunityID: m.CommunityID,
		UserID:      m.UserID,
		Role:        m.Role,
		JoinedAt:    m.JoinedAt,
	}
}

// MemberRoleRequest changes a member's role.
type MemberRoleRequest struct {
	Role enums.CommunityRole `json:"role" validate:"required,enum"`
}
