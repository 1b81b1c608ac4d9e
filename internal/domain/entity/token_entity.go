package entity

import "time"

type TokenType string

const TokenTypeBearer TokenType = "BEARER"

// TokenRecord is the ledger entry for one issued access token.
// Records are never deleted; revocation flips Expired and Revoked together.
type TokenRecord struct {
	Token     string
	UserID    string
	Type      TokenType
	Expired   bool
	Revoked   bool
	CreatedAt time.Time
}

// Valid reports whether neither flag has been set.
func (t TokenRecord) Valid() bool { return !t.Expired && !t.Revoked }
