package registrations

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
)

// RegisterRequest is the HTTP body of a registration.
type RegisterRequest struct {
	Name    *string           `json:"name,omitempty" validate:"omitempty,max=120"`
	Email   *string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string           `json:"phone,omitempty"`
	Answers map[string]string `json:"answers,omitempty"`
}

// RegisterInput is a registration attempt. UserID is nil for anonymous callers.
type RegisterInput struct {
	EventID uuid.UUID
	UserID  *uuid.UUID
	Name    string
	Email   string
	Phone   string
	Answers map[string]string
}

// RegisterResult tells the caller what happens next.
type RegisterResult struct {
	Registration         RegistrationDTO `json:"registration"`
	RequiresVerification bool            `json:"requires_verification"`
	PendingApproval      bool            `json:"pending_approval"`
}

// Outcome is the result of consuming a verification token.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeAlready         Outcome = "already"
	OutcomePendingApproval Outcome = "pending_approval"
)

// VerifyInput pairs a token with the event id taken from the link path.
type VerifyInput struct {
	Token   string
	EventID uuid.UUID
}

type VerifyResult struct {
	Outcome        Outcome   `json:"outcome"`
	RegistrationID uuid.UUID `json:"registration_id"`
}

// UpdateStatusRequest is the HTTP body of an approval decision.
type UpdateStatusRequest struct {
	RegistrationID uuid.UUID            `json:"registrationId" validate:"required"`
	Status         enums.ApprovalStatus `json:"status" validate:"required,enum"`
}

type UpdateStatusInput struct {
	ActorID        uuid.UUID
	EventID        uuid.UUID
	RegistrationID uuid.UUID
	Status         enums.ApprovalStatus
}

// AttendanceRequest toggles attendance for one registration.
type AttendanceRequest struct {
	Attended bool `json:"attended"`
}

// ListFilter narrows organizer registration listings.
type ListFilter struct {
	ApprovalStatus *enums.ApprovalStatus
	VerifiedOnly   bool
}

// RegistrationDTO is the organizer view of a registration.
type RegistrationDTO struct {
	ID             uuid.UUID             `json:"id"`
	EventID        uuid.UUID             `json:"event_id"`
	UserID         *uuid.UUID            `json:"user_id,omitempty"`
	Name           string                `json:"name,omitempty"`
	Email          string                `json:"email,omitempty"`
	Phone          *string               `json:"phone,omitempty"`
	Anonymous      bool                  `json:"anonymous"`
	RSVPStatus     enums.RSVPStatus      `json:"rsvp_status"`
	ApprovalStatus *enums.ApprovalStatus `json:"approval_status,omitempty"`
	IsVerified     bool                  `json:"is_verified"`
	Answers        map[string]string     `json:"answers,omitempty"`
	AttendedAt     *time.Time            `json:"attended_at,omitempty"`
	RegisteredAt   time.Time             `json:"registered_at"`
}

// RegistrationPage is a cursor page of registrations.
type RegistrationPage struct {
	Registrations []RegistrationDTO `json:"registrations"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

func toDTO(r *models.EventRegistration, profileEmail, profileName string) RegistrationDTO {
	dto := RegistrationDTO{
		ID:             r.ID,
		EventID:        r.EventID,
		UserID:         r.UserID,
		Name:           r.ContactName(),
		Email:          r.ContactEmail(),
		Phone:          r.AnonymousPhone,
		Anonymous:      r.IsAnonymous(),
		RSVPStatus:     r.RSVPStatus,
		ApprovalStatus: r.ApprovalStatus,
		IsVerified:     r.IsVerified,
		AttendedAt:     r.AttendedAt,
		RegisteredAt:   r.RegisteredAt,
	}
	if dto.Email == "" {
		dto.Email = profileEmail
	}
	if dto.Name == "" {
		dto.Name = profileName
	}
	if len(r.CustomAnswers) > 0 {
		var answers map[string]string
		if err := json.Unmarshal(r.CustomAnswers, &answers); err == nil {
			dto.Answers = answers
		}
	}
	return dto
}
