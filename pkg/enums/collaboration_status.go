package enums

import "fmt"

// CollaborationStatus tracks a co-host invitation.
type CollaborationStatus string

const (
	CollaborationStatusPending  CollaborationStatus = "pending"
	CollaborationStatusAccepted CollaborationStatus = "accepted"
	CollaborationStatusRejected CollaborationStatus = "rejected"
)

var validCollaborationStatuses = []CollaborationStatus{
	CollaborationStatusPending,
	CollaborationStatusAccepted,
	CollaborationStatusRejected,
}

// String implements fmt.Stringer.
func (v CollaborationStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CollaborationStatus.
func (v CollaborationStatus) IsValid() bool {
	for _, candidate := range validCollaborationStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCollaborationStatus converts raw input into a CollaborationStatus.
func ParseCollaborationStatus(value string) (CollaborationStatus, error) {
	for _, candidate := range validCollaborationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collaboration status %q", value)
}
