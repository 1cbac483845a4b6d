package enums

import "fmt"

// RegistrationType distinguishes native sign-ups from externally hosted forms.
type RegistrationType string

const (
	RegistrationTypeNative   RegistrationType = "native"
	RegistrationTypeExternal RegistrationType = "external"
)

var validRegistrationTypes = []RegistrationType{
	RegistrationTypeNative,
	RegistrationTypeExternal,
}

// String implements fmt.Stringer.
func (v RegistrationType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known RegistrationType.
func (v RegistrationType) IsValid() bool {
	for _, candidate := range validRegistrationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRegistrationType converts raw input into a RegistrationType.
func ParseRegistrationType(value string) (RegistrationType, error) {
	for _, candidate := range validRegistrationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid registration type %q", value)
}
