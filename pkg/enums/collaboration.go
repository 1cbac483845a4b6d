package enums

import "fmt"

// CollaborationRole is the part a community plays in a co-hosted event.
type CollaborationRole string

const (
	CollaborationRoleHost   CollaborationRole = "host"
	CollaborationRoleCoHost CollaborationRole = "co-host"
)

var validCollaborationRoles = []CollaborationRole{
	CollaborationRoleHost,
	CollaborationRoleCoHost,
}

// String implements fmt.Stringer.
func (v CollaborationRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CollaborationRole.
func (v CollaborationRole) IsValid() bool {
	for _, candidate := range validCollaborationRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCollaborationRole converts raw input into a CollaborationRole.
func ParseCollaborationRole(value string) (CollaborationRole, error) {
	for _, candidate := range validCollaborationRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collaboration role %q", value)
}
