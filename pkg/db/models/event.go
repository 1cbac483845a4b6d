package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// Event is a community-owned happening that people register for.
type Event struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CommunityID          uuid.UUID              `gorm:"column:community_id;type:uuid;not null;index"`
	Title                string                 `gorm:"column:title;type:text;not null"`
	Description          *string                `gorm:"column:description"`
	StartTime            time.Time              `gorm:"column:start_time;not null"`
	EndTime              *time.Time             `gorm:"column:end_time"`
	Timezone             string                 `gorm:"column:timezone;type:text;not null;default:UTC"`
	LocationName         *string                `gorm:"column:location_name"`
	LocationAddress      *string                `gorm:"column:location_address"`
	OnlineMeetingURL     *string                `gorm:"column:online_meeting_url"`
	DiscussionURL        *string                `gorm:"column:discussion_url"`
	Status               enums.EventStatus      `gorm:"column:status;type:text;not null"`
	RegistrationType     enums.RegistrationType `gorm:"column:registration_type;type:text;not null"`
	ExternalPlatform     *string                `gorm:"column:external_platform"`
	ExternalURL          *string                `gorm:"column:external_url"`
	Capacity             *int                   `gorm:"column:capacity"`
	RegistrationDeadline *time.Time             `gorm:"column:registration_deadline"`
	IsApproveRequired    bool                   `gorm:"column:is_approve_required;not null;default:false"`
	CustomQuestions      datatypes.JSON         `gorm:"column:custom_questions;type:jsonb"`
	NotificationOffsets  pq.StringArray         `gorm:"column:notification_offsets;type:text[]"`
	CoverURL             *string                `gorm:"column:cover_url"`
	CreatedBy            uuid.UUID              `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Event) TableName() string { return "events" }

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsExternal reports whether registration happens on a third-party platform.
func (e *Event) IsExternal() bool {
	return e != nil && e.RegistrationType == enums.RegistrationTypeExternal
}

// Location returns the event timezone, falling back to UTC when unknown.
func (e *Event) Location() *time.Location {
	if e == nil || e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventCollaboration links a co-hosting community to an event.
type EventCollaboration struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventID     uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex:event_collaborations_event_community_key"`
	CommunityID uuid.UUID                 `gorm:"column:community_id;type:uuid;not null;uniqueIndex:event_collaborations_event_community_key"`
	Role        enums.CollaborationRole   `gorm:"column:role;type:text;not null"`
	Status      enums.CollaborationStatus `gorm:"column:status;type:text;not null"`
	InvitedBy   uuid.UUID                 `gorm:"column:invited_by;type:uuid;not null"`
	RespondedAt *time.Time                `gorm:"column:responded_at"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (EventCollaboration) TableName() string { return "event_collaborations" }

func (c *EventCollaboration) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// EventReminder is a scheduled reminder for one configured offset of an event.
type EventReminder struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	EventID    uuid.UUID  `gorm:"column:event_id;type:uuid;not null;uniqueIndex:event_reminders_event_offset_key"`
	SendAt     time.Time  `gorm:"column:send_at;not null;index"`
	SendOffset string     `gorm:"column:send_offset;type:text;not null;uniqueIndex:event_reminders_event_offset_key"`
	Message    *string    `gorm:"column:message"`
	Sent       bool       `gorm:"column:sent;not null;default:false"`
	SentAt     *time.Time `gorm:"column:sent_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (EventReminder) TableName() string { return "event_reminders" }

func (r *EventReminder) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// LocationLabel is the human-readable venue used in emails.
func (e *Event) LocationLabel() string {
	if e == nil {
		return ""
	}
	var parts []string
	if e.LocationName != nil && *e.LocationName != "" {
		parts = append(parts, *e.LocationName)
	}
	if e.LocationAddress != nil && *e.LocationAddress != "" {
		parts = append(parts, *e.LocationAddress)
	}
	if len(parts) == 0 && e.OnlineMeetingURL != nil && *e.OnlineMeetingURL != "" {
		return "Online"
	}
	return strings.Join(parts, ", ")
}
