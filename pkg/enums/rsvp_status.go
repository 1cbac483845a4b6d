package enums

import "fmt"

// RSVPStatus captures the registrant's stated attendance intent.
type RSVPStatus string

const (
	RSVPStatusGoing    RSVPStatus = "going"
	RSVPStatusMaybe    RSVPStatus = "maybe"
	RSVPStatusNotGoing RSVPStatus = "not_going"
)

var validRSVPStatuses = []RSVPStatus{
	RSVPStatusGoing,
	RSVPStatusMaybe,
	RSVPStatusNotGoing,
}

// String implements fmt.Stringer.
func (v RSVPStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known RSVPStatus.
func (v RSVPStatus) IsValid() bool {
	for _, candidate := range validRSVPStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRSVPStatus converts raw input into a RSVPStatus.
func ParseRSVPStatus(value string) (RSVPStatus, error) {
	for _, candidate := range validRSVPStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rsvp status %q", value)
}
