package enums

import "fmt"

// ApprovalStatus is the organizer decision on a registration for approval-gated events.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

var validApprovalStatuses = []ApprovalStatus{
	ApprovalStatusPending,
	ApprovalStatusApproved,
	ApprovalStatusRejected,
}

// String implements fmt.Stringer.
func (v ApprovalStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ApprovalStatus.
func (v ApprovalStatus) IsValid() bool {
	for _, candidate := range validApprovalStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseApprovalStatus converts raw input into a ApprovalStatus.
func ParseApprovalStatus(value string) (ApprovalStatus, error) {
	for _, candidate := range validApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval status %q", value)
}
