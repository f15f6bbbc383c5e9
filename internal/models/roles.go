package models

// Role is a capability group a user may hold. A user holds zero, one, or both.
type Role string

const (
	RolePatient    Role = "patient"
	RoleResearcher Role = "researcher"
)

// AllValidRoles is the whitelist of assignable roles
var AllValidRoles = map[Role]bool{
	RolePatient:    true,
	RoleResearcher: true,
}

// IsValidRole checks if a role string exists in the whitelist
func IsValidRole(role string) bool {
	return AllValidRoles[Role(role)]
}

// HasAnyRole reports whether roles intersects allowed
func HasAnyRole(roles []Role, allowed ...Role) bool {
	for _, held := range roles {
		for _, want := range allowed {
			if held == want {
				return true
			}
		}
	}
	return false
}

// AddRole returns roles with role appended unless already present.
// The second return value is false when nothing changed.
func AddRole(roles []Role, role Role) ([]Role, bool) {
	if HasAnyRole(roles, role) {
		return roles, false
	}
	out := make([]Role, 0, len(roles)+1)
	out = append(out, roles...)
	return append(out, role), true
}
