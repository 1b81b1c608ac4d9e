package entity

import (
	"time"
)

// User is the aggregate root for user domain
// Passwords are stored as bcrypt hashes in Password field
type User struct {
	ID          string
	Email       string
	Username    string
	Password    string
	Role        Role
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	City        string
	Country     string
	Avatar      string
	Company     string
	JobPosition string
	Mobile      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Principal is the acting identity resolved for a request.
type Principal interface {
	Roles() []Role
	IsActive() bool
}

func (u *User) Roles() []Role {
	if u == nil || u.Role == "" {
		return nil
	}
	return []Role{u.Role}
}

// IsActive is always true; accounts have no disable path yet.
func (u *User) IsActive() bool { return u != nil }

// HasRole reports whether p holds role r.
func HasRole(p Principal, r Role) bool {
	if p == nil {
		return false
	}
	for _, have := range p.Roles() {
		if have == r {
			return true
		}
	}
	return false
}
