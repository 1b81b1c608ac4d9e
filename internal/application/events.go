package application

import "time"

const (
	EventUserRegistered    = "user.registered"
	EventUserAuthenticated = "user.authenticated"
)

// AuthEvent is the JSON body published on the events queue.
type AuthEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
