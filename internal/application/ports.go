package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/pkg/helpers"
)

// PasswordHasher is a one-way hash. helpers.BcryptHasher satisfies it.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// TokenIssuer mints and validates signed access tokens. helpers.TokenIssuer satisfies it.
type TokenIssuer interface {
	Issue(subject, role string, ttl time.Duration) (string, time.Time, error)
	Validate(token string) (*helpers.Claims, error)
}

// EventPublisher ships auth events to the mail worker.
type EventPublisher interface {
	Publish(ctx context.Context, evt AuthEvent) error
}

// UserIndexer keeps the search index in sync with registrations.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// ImportArchiver stores a copy of every uploaded import file.
type ImportArchiver interface {
	Archive(ctx context.Context, filename string, r io.Reader) (string, error)
}
