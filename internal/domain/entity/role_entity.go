package entity

import "strings"

// Role represents an authorization role carried by every user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalizes s and reports whether it names a known role.
// An empty string is not a role; callers decide the default.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }
