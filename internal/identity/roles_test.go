package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoleSetDropsUnknownRoles(t *testing.T) {
	s := NewRoleSet("CLIENT", "FIXER", "WIZARD", "")
	assert.True(t, s.Has(RoleClient))
	assert.True(t, s.Has(RoleFixer))
	assert.Len(t, s, 2)
}

func TestHasAny(t *testing.T) {
	s := NewRoleSet("AGENT")
	assert.True(t, s.HasAny(RoleFixer, RoleAgent))
	assert.False(t, s.HasAny(RoleFixer, RoleAdmin))
	assert.False(t, RoleSet{}.HasAny(RoleClient))
}

func TestMultiRoleUser(t *testing.T) {
	// a fixer who also buys as a client
	s := NewRoleSet("CLIENT", "FIXER")
	assert.True(t, s.Has(RoleClient))
	assert.True(t, s.Has(RoleFixer))
	assert.False(t, s.Has(RoleAdmin))
}

func TestStrings(t *testing.T) {
	s := NewRoleSet("FIXER", "CLIENT")
	assert.ElementsMatch(t, []string{"CLIENT", "FIXER"}, s.Strings())
}
