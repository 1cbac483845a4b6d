package enums

import "fmt"

// CommunityRole represents a member's permission level inside a community.
type CommunityRole string

const (
	CommunityRoleMember CommunityRole = "member"
	CommunityRoleAdmin  CommunityRole = "admin"
	CommunityRoleOwner  CommunityRole = "owner"
)

var validCommunityRoles = []CommunityRole{
	CommunityRoleMember,
	CommunityRoleAdmin,
	CommunityRoleOwner,
}

// String implements fmt.Stringer.
func (v CommunityRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CommunityRole.
func (v CommunityRole) IsValid() bool {
	for _, candidate := range validCommunityRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCommunityRole converts raw input into a CommunityRole.
func ParseCommunityRole(value string) (CommunityRole, error) {
	for _, candidate := range validCommunityRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid community role %q", value)
}

// CanManage reports whether the role may administer the community and its events.
func (v CommunityRole) CanManage() bool {
	return v == CommunityRoleOwner || v == CommunityRoleAdmin
}

// ManagerRoles lists the roles allowed to administer a community.
func ManagerRoles() []CommunityRole {
	return []CommunityRole{CommunityRoleOwner, CommunityRoleAdmin}
}
