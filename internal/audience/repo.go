// Package audience resolves email recipients for events and communities.
package audience

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// Recipient is a resolved email address with a display name. Name may be
// empty; templates fall back to a generic greeting.
type Recipient struct {
	RegistrationID *uuid.UUID
	UserID         *uuid.UUID
	Email          string
	Name           string
}

// AttendeeFilter narrows the registrations considered attendees.
type AttendeeFilter struct {
	// ApprovedOnly keeps approved rows; a NULL approval status counts as approved.
	ApprovedOnly bool
}

// Repository reads recipients from registrations, members and profiles.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type attendeeRow struct {
	RegistrationID uuid.UUID  `gorm:"column:registration_id"`
	UserID         *uuid.UUID `gorm:"column:user_id"`
	AnonymousEmail *string    `gorm:"column:anonymous_email"`
	AnonymousName  *string    `gorm:"column:anonymous_name"`
	ProfileEmail   *string    `gorm:"column:profile_email"`
	ProfileName    *string    `gorm:"column:profile_name"`
}

// EventAttendees returns verified, going registrants of the event. Rejected
// registrations are always excluded. Rows without any resolvable email are
// dropped.
func (r *Repository) EventAttendees(ctx context.Context, eventID uuid.UUID, filter AttendeeFilter) ([]Recipient, error) {
	query := r.db.WithContext(ctx).
		Table("event_registrations AS er").
		Select(`er.id AS registration_id, er.user_id, er.anonymous_email, er.anonymous_name,
			p.email AS profile_email, p.full_name AS profile_name`).
		Joins("LEFT JOIN profiles p ON p.id = er.user_id").
		Where("er.event_id = ? AND er.is_verified = ? AND er.rsvp_status = ?", eventID, true, enums.RSVPStatusGoing)
	if filter.ApprovedOnly {
		query = query.Where("(er.approval_status IS NULL OR er.approval_status = ?)", enums.ApprovalStatusApproved)
	} else {
		query = query.Where("(er.approval_status IS NULL OR er.approval_status <> ?)", enums.ApprovalStatusRejected)
	}

	var rows []attendeeRow
	if err := query.Order("er.registered_at").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Recipient, 0, len(rows))
	for _, row := range rows {
		email, name := resolveContact(row)
		if email == "" {
			continue
		}
		id := row.RegistrationID
		out = append(out, Recipient{
			RegistrationID: &id,
			UserID:         row.UserID,
			Email:          email,
			Name:           name,
		})
	}
	return out, nil
}

type memberRow struct {
	UserID   uuid.UUID `gorm:"column:user_id"`
	Email    string    `gorm:"column:email"`
	FullName string    `gorm:"column:full_name"`
}

// CommunityMembers returns every member of the community, optionally skipping one user.
func (r *Repository) CommunityMembers(ctx context.Context, communityID uuid.UUID, exclude *uuid.UUID) ([]Recipient, error) {
	query := r.db.WithContext(ctx).
		Table("community_members AS cm").
		Select("cm.user_id, p.email, p.full_name").
		Joins("JOIN profiles p ON p.id = cm.user_id").
		Where("cm.community_id = ?", communityID)
	if exclude != nil {
		query = query.Where("cm.user_id <> ?", *exclude)
	}

	var rows []memberRow
	if err := query.Order("cm.joined_at").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(rows))
	for _, row := range rows {
		email := strings.TrimSpace(row.Email)
		if email == "" {
			continue
		}
		id := row.UserID
		out = append(out, Recipient{UserID: &id, Email: email, Name: row.FullName})
	}
	return out, nil
}

// CommunityManagers returns owners and admins of the given communities.
func (r *Repository) CommunityManagers(ctx context.Context, communityIDs ...uuid.UUID) ([]Recipient, error) {
	if len(communityIDs) == 0 {
		return nil, nil
	}
	var rows []memberRow
	err := r.db.WithContext(ctx).
		Table("community_members AS cm").
		Select("cm.user_id, p.email, p.full_name").
		Joins("JOIN profiles p ON p.id = cm.user_id").
		Where("cm.community_id IN ? AND cm.role IN ?", communityIDs, enums.ManagerRoles()).
		Order("cm.joined_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(rows))
	for _, row := range rows {
		id := row.UserID
		out = append(out, Recipient{UserID: &id, Email: row.Email, Name: row.FullName})
	}
	return out, nil
}

// resolveContact prefers the anonymous contact and falls back to the profile.
func resolveContact(row attendeeRow) (string, string) {
	email := trimmed(row.AnonymousEmail)
	if email == "" {
		email = trimmed(row.ProfileEmail)
	}
	name := trimmed(row.AnonymousName)
	if name == "" {
		name = trimmed(row.ProfileName)
	}
	return email, name
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
