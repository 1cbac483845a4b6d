package enums

import "fmt"

// EventStatus tracks whether an event is visible to the public.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
)

var validEventStatuses = []EventStatus{
	EventStatusDraft,
	EventStatusPublished,
}

// String implements fmt.Stringer.
func (v EventStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known EventStatus.
func (v EventStatus) IsValid() bool {
	for _, candidate := range validEventStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseEventStatus converts raw input into a EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	for _, candidate := range validEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event status %q", value)
}
