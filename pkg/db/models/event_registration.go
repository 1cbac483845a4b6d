package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// EventRegistration records intent to attend. A nil UserID marks an anonymous
// registrant identified by the row id and the anonymous contact fields.
type EventRegistration struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	EventID           uuid.UUID             `gorm:"column:event_id;type:uuid;not null;index"`
	UserID            *uuid.UUID            `gorm:"column:user_id;type:uuid"`
	AnonymousName     *string               `gorm:"column:anonymous_name"`
	AnonymousEmail    *string               `gorm:"column:anonymous_email"`
	AnonymousPhone    *string               `gorm:"column:anonymous_phone"`
	RSVPStatus        enums.RSVPStatus      `gorm:"column:rsvp_status;type:text;not null"`
	ApprovalStatus    *enums.ApprovalStatus `gorm:"column:approval_status;type:text"`
	IsVerified        bool                  `gorm:"column:is_verified;not null;default:false"`
	VerificationToken *string               `gorm:"column:verification_token;uniqueIndex"`
	TokenExpiresAt    *time.Time            `gorm:"column:token_expires_at"`
	CustomAnswers     datatypes.JSON        `gorm:"column:custom_answers;type:jsonb"`
	AttendedAt        *time.Time            `gorm:"column:attended_at"`
	RegisteredAt      time.Time             `gorm:"column:registered_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (EventRegistration) TableName() string { return "event_registrations" }

func (r *EventRegistration) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsAnonymous reports whether the registrant has no account.
func (r *EventRegistration) IsAnonymous() bool {
	return r != nil && r.UserID == nil
}

// IsPendingApproval reports whether an organizer decision is outstanding.
func (r *EventRegistration) IsPendingApproval() bool {
	return r != nil && r.ApprovalStatus != nil && *r.ApprovalStatus == enums.ApprovalStatusPending
}

// ContactEmail returns the anonymous email when present.
func (r *EventRegistration) ContactEmail() string {
	if r == nil || r.AnonymousEmail == nil {
		return ""
	}
	return strings.TrimSpace(*r.AnonymousEmail)
}

// ContactName returns the anonymous name when present.
func (r *EventRegistration) ContactName() string {
	if r == nil || r.AnonymousName == nil {
		return ""
	}
	return strings.TrimSpace(*r.AnonymousName)
}
