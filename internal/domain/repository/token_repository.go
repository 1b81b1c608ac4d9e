package repository

import (
	"context"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

// TokenWriter is the set of ledger writes allowed inside an exclusive section.
type TokenWriter interface {
	RevokeAllValid(ctx context.Context, userID string) (int64, error)
	Insert(ctx context.Context, rec entity.TokenRecord) error
}

// TokenRepository persists issued token records.
type TokenRepository interface {
	TokenWriter
	FindByToken(ctx context.Context, token string) (*entity.TokenRecord, error)
	ListByUser(ctx context.Context, userID string) ([]entity.TokenRecord, error)
	// RunExclusive runs fn while holding the per-user lock. Writes made
	// through the TokenWriter commit together or not at all.
	RunExclusive(ctx context.Context, userID string, fn func(ctx context.Context, w TokenWriter) error) error
}
