package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/internal/platforms"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

// CreateEventInput is the organizer payload for a new draft event.
type CreateEventInput struct {
	Title                string                 `json:"title" validate:"required,min=2,max=200"`
	Description          *string                `json:"description,omitempty"`
	StartTime            time.Time              `json:"start_time" validate:"required"`
	EndTime              *time.Time             `json:"end_time,omitempty"`
	Timezone             string                 `json:"timezone" validate:"required,timezone"`
	LocationName         *string                `json:"location_name,omitempty"`
	LocationAddress      *string                `json:"location_address,omitempty"`
	OnlineMeetingURL     *string                `json:"online_meeting_url,omitempty" validate:"omitempty,url"`
	DiscussionURL        *string                `json:"discussion_url,omitempty" validate:"omitempty,url"`
	RegistrationType     enums.RegistrationType `json:"registration_type,omitempty"`
	ExternalURL          *string                `json:"external_url,omitempty" validate:"omitempty,url"`
	Capacity             *int                   `json:"capacity,omitempty"`
	RegistrationDeadline *time.Time             `json:"registration_deadline,omitempty"`
	IsApproveRequired    bool                   `json:"is_approve_required"`
	CustomQuestions      []Question             `json:"custom_questions,omitempty"`
	NotificationOffsets  []string               `json:"notification_offsets,omitempty"`
	CoverURL             *string                `json:"cover_url,omitempty" validate:"omitempty,url"`
}

// UpdateEventInput patches an event; nil fields are untouched.
type UpdateEventInput struct {
	Title                *string                 `json:"title,omitempty" validate:"omitempty,min=2,max=200"`
	Description          *string                 `json:"description,omitempty"`
	StartTime            *time.Time              `json:"start_time,omitempty"`
	EndTime              *time.Time              `json:"end_time,omitempty"`
	Timezone             *string                 `json:"timezone,omitempty" validate:"omitempty,timezone"`
	LocationName         *string                 `json:"location_name,omitempty"`
	LocationAddress      *string                 `json:"location_address,omitempty"`
	OnlineMeetingURL     *string                 `json:"online_meeting_url,omitempty" validate:"omitempty,url"`
	DiscussionURL        *string                 `json:"discussion_url,omitempty"`
	RegistrationType     *enums.RegistrationType `json:"registration_type,omitempty"`
	ExternalURL          *string                 `json:"external_url,omitempty"`
	Capacity             *int                    `json:"capacity,omitempty"`
	RegistrationDeadline *time.Time              `json:"registration_deadline,omitempty"`
	IsApproveRequired    *bool                   `json:"is_approve_required,omitempty"`
	CustomQuestions      *[]Question             `json:"custom_questions,omitempty"`
	NotificationOffsets  *[]string               `json:"notification_offsets,omitempty"`
	CoverURL             *string                 `json:"cover_url,omitempty"`
}

// EventDTO is the API view of an event.
type EventDTO struct {
	ID                   uuid.UUID              `json:"id"`
	CommunityID          uuid.UUID              `json:"community_id"`
	Title                string                 `json:"title"`
	Description          *string                `json:"description,omitempty"`
	StartTime            time.Time              `json:"start_time"`
	EndTime              *time.Time             `json:"end_time,omitempty"`
	Timezone             string                 `json:"timezone"`
	LocationName         *string                `json:"location_name,omitempty"`
	LocationAddress      *string                `json:"location_address,omitempty"`
	OnlineMeetingURL     *string                `json:"online_meeting_url,omitempty"`
	DiscussionURL        *string                `json:"discussion_url,omitempty"`
	DiscussionPlatform   platforms.Platform     `json:"discussion_platform,omitempty"`
	Status               enums.EventStatus      `json:"status"`
	RegistrationType     enums.RegistrationType `json:"registration_type"`
	ExternalPlatform     *string                `json:"external_platform,omitempty"`
	ExternalURL          *string                `json:"external_url,omitempty"`
	Capacity             *int                   `json:"capacity,omitempty"`
	RegistrationDeadline *time.Time             `json:"registration_deadline,omitempty"`
	IsApproveRequired    bool                   `json:"is_approve_required"`
	CustomQuestions      []Question             `json:"custom_questions,omitempty"`
	NotificationOffsets  []string               `json:"notification_offsets,omitempty"`
	CoverURL             *string                `json:"cover_url,omitempty"`
	RegistrationCount    *int64                 `json:"registration_count,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

// EventPage is a cursor page of events ordered by start time.
type EventPage struct {
	Events     []EventDTO `json:"events"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToDTO maps a model to its API view. Malformed question JSON is dropped.
func ToDTO(e *models.Event) EventDTO {
	questions, _ := ParseQuestions(e.CustomQuestions)
	dto := EventDTO{
		ID:                   e.ID,
		CommunityID:          e.CommunityID,
		Title:                e.Title,
		Description:          e.Description,
		StartTime:            e.StartTime,
		EndTime:              e.EndTime,
		Timezone:             e.Timezone,
		LocationName:         e.LocationName,
		LocationAddress:      e.LocationAddress,
		OnlineMeetingURL:     e.OnlineMeetingURL,
		DiscussionURL:        e.DiscussionURL,
		Status:               e.Status,
		RegistrationType:     e.RegistrationType,
		ExternalPlatform:     e.ExternalPlatform,
		ExternalURL:          e.ExternalURL,
		Capacity:             e.Capacity,
		RegistrationDeadline: e.RegistrationDeadline,
		IsApproveRequired:    e.IsApproveRequired,
		CustomQuestions:      questions,
		NotificationOffsets:  []string(e.NotificationOffsets),
		CoverURL:             e.CoverURL,
		CreatedAt:            e.CreatedAt,
	}
	if e.DiscussionURL != nil && *e.DiscussionURL != "" {
		dto.DiscussionPlatform = platforms.DetectDiscussionPlatform(*e.DiscussionURL)
	}
	return dto
}
