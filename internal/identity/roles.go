package identity

// Role is a marketplace role. A user may hold several at once, e.g. a fixer
// who also posts service requests as a client.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleFixer  Role = "FIXER"
	RoleAgent  Role = "AGENT"
	RoleAdmin  Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RoleClient: true,
	RoleFixer:  true,
	RoleAgent:  true,
	RoleAdmin:  true,
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool { return validRoles[r] }

// RoleSet is the set of roles held by one user.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from role strings, dropping unknown values.
func NewRoleSet(roles ...string) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		role := Role(r)
		if role.IsValid() {
			s[role] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether any of the given roles is in the set.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Add inserts a role into the set.
func (s RoleSet) Add(role Role) {
	if role.IsValid() {
		s[role] = struct{}{}
	}
}

// Strings returns the set as a sorted-insensitive slice for storage.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range []Role{RoleClient, RoleFixer, RoleAgent, RoleAdmin} {
		if s.Has(r) {
			out = append(out, string(r))
		}
	}
	return out
}
