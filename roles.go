package auth

// Role is the closed set of principal roles in the club platform.
// There is no implied hierarchy: an operation that admits both admins
// and coaches must list both explicitly.
type Role string

const (
	// RoleAdmin manages the whole club: identities, classes, finances.
	RoleAdmin Role = "admin"
	// RoleCoach runs the classes they are assigned to.
	RoleCoach Role = "coach"
	// RoleStudent attends classes.
	RoleStudent Role = "student"
)

// IsValid checks the role is one of the predefined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCoach, RoleStudent:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// AllRoles returns the predefined roles.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleCoach, RoleStudent}
}

// ParseRole safely parses a string into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	return role, role.IsValid()
}

// RoleSet is the set of roles an operation admits. An empty set admits
// any authenticated principal.
type RoleSet []Role

// Roles is a convenience constructor for route declaration sites.
func Roles(roles ...Role) RoleSet {
	return RoleSet(roles)
}

// Contains reports whether the set admits the given role.
func (s RoleSet) Contains(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}
