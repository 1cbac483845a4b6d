package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// WaitlistRequest is a request to create a new community, reviewed by platform admins.
type WaitlistRequest struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name          string               `gorm:"column:name;type:text;not null"`
	Email         string               `gorm:"column:email;type:text;not null"`
	CommunityName string               `gorm:"column:community_name;type:text;not null"`
	Description   *string              `gorm:"column:description"`
	Status        enums.WaitlistStatus `gorm:"column:status;type:text;not null"`
	CommunityID   *uuid.UUID           `gorm:"column:community_id;type:uuid"`
	ReviewedAt    *time.Time           `gorm:"column:reviewed_at"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (WaitlistRequest) TableName() string { return "waitlist_requests" }

func (w *WaitlistRequest) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
