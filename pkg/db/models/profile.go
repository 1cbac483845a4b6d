package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile is the canonical identity record; its ID doubles as the auth user id.
type Profile struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FullName     string         `gorm:"column:full_name;not null"`
	AvatarURL    *string        `gorm:"column:avatar_url"`
	Bio          *string        `gorm:"column:bio"`
	Timezone     string         `gorm:"column:timezone;not null;default:UTC"`
	SystemRole   *string        `gorm:"column:system_role"`
	Settings     datatypes.JSON `gorm:"column:settings;type:jsonb"`
	Gamification datatypes.JSON `gorm:"column:gamification;type:jsonb"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
