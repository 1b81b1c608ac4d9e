package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := map[string]struct {
		role Role
		ok   bool
	}{
		"ADMIN":  {RoleAdmin, true},
		" user ": {RoleUser, true},
		"Admin":  {RoleAdmin, true},
		"":       {"", false},
		"ROOT":   {"", false},
		"USERS":  {"", false},
	}
	for in, want := range cases {
		got, ok := ParseRole(in)
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.role, got, in)
	}
}

func TestHasRole(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	user := &User{Role: RoleUser}
	var nobody *User

	assert.True(t, HasRole(admin, RoleAdmin))
	assert.False(t, HasRole(user, RoleAdmin))
	assert.False(t, HasRole(nil, RoleUser))
	assert.False(t, HasRole(nobody, RoleUser))
	assert.False(t, nobody.IsActive())
	assert.Nil(t, (&User{}).Roles())
}
