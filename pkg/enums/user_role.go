package enums

import "fmt"

// UserRole is the access level carried by an authenticated dashboard user.
type UserRole string

const (
	UserRoleAgencyAdmin UserRole = "agency_admin"
	UserRoleAgencyStaff UserRole = "agency_staff"
	UserRoleSuperadmin  UserRole = "superadmin"
)

var validUserRoles = []UserRole{
	UserRoleAgencyAdmin,
	UserRoleAgencyStaff,
	UserRoleSuperadmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
