package profiles

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/db/models"
)

// ProfileDTO is the transport shape that omits credentials.
type ProfileDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	Timezone    string     `json:"timezone"`
	SystemRole  *string    `json:"system_role,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateProfileDTO holds the data required to persist a new profile.
type CreateProfileDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Timezone     string
	SystemRole   *string
}

// UpdateProfileDTO carries optional profile edits; nil fields are left untouched.
type UpdateProfileDTO struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=120"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Timezone  *string `json:"timezone,omitempty"`
}

// Contact is the minimal addressing data used by email fan-out.
type Contact struct {
	ID       uuid.UUID
	Email    string
	FullName string
}

func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		ID:          p.ID,
		Email:       p.Email,
		FullName:    p.FullName,
		AvatarURL:   p.AvatarURL,
		Bio:         p.Bio,
		Timezone:    p.Timezone,
		SystemRole:  p.SystemRole,
		LastLoginAt: p.LastLoginAt,
		CreatedAt:   p.CreatedAt,
	}
}

func (c CreateProfileDTO) ToModel() *models.Profile {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	return &models.Profile{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: c.PasswordHash,
		FullName:     strings.TrimSpace(c.FullName),
		Timezone:     tz,
		SystemRole:   c.SystemRole,
	}
}
