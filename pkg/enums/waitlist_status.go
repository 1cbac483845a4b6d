package enums

import "fmt"

// WaitlistStatus tracks review of a community creation request.
type WaitlistStatus string

const (
	WaitlistStatusPending  WaitlistStatus = "pending"
	WaitlistStatusApproved WaitlistStatus = "approved"
	WaitlistStatusRejected WaitlistStatus = "rejected"
)

var validWaitlistStatuses = []WaitlistStatus{
	WaitlistStatusPending,
	WaitlistStatusApproved,
	WaitlistStatusRejected,
}

// String implements fmt.Stringer.
func (v WaitlistStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known WaitlistStatus.
func (v WaitlistStatus) IsValid() bool {
	for _, candidate := range validWaitlistStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseWaitlistStatus converts raw input into a WaitlistStatus.
func ParseWaitlistStatus(value string) (WaitlistStatus, error) {
	for _, candidate := range validWaitlistStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid waitlist status %q", value)
}
