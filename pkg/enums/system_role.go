package enums

import "fmt"

// SystemRole is the platform-wide role embedded in access tokens.
type SystemRole string

const (
	SystemRoleUser  SystemRole = "user"
	SystemRoleAdmin SystemRole = "admin"
)

var validSystemRoles = []SystemRole{
	SystemRoleUser,
	SystemRoleAdmin,
}

// String implements fmt.Stringer.
func (v SystemRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SystemRole.
func (v SystemRole) IsValid() bool {
	for _, candidate := range validSystemRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSystemRole converts raw input into a SystemRole. Empty input maps to
// SystemRoleUser.
func ParseSystemRole(value string) (SystemRole, error) {
	if value == "" {
		return SystemRoleUser, nil
	}
	for _, candidate := range validSystemRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system role %q", value)
}
