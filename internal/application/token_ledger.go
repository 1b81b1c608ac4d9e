package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-user-management/internal/domain/repository"
)

// TokenLedger tracks issued tokens per user and their expired/revoked flags.
type TokenLedger struct {
	Repo   repo.TokenRepository
	Issuer TokenIssuer
	Now    func() time.Time
}

func NewTokenLedger(r repo.TokenRepository, issuer TokenIssuer) *TokenLedger {
	return &TokenLedger{Repo: r, Issuer: issuer, Now: time.Now}
}

func (l *TokenLedger) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

func (l *TokenLedger) newRecord(userID, token string) entity.TokenRecord {
	return entity.TokenRecord{
		Token:     token,
		UserID:    userID,
		Type:      entity.TokenTypeBearer,
		CreatedAt: l.now().UTC(),
	}
}

// RevokeAllValid marks every still-valid record of userID expired and revoked.
// It returns how many records changed; calling it twice changes nothing the second time.
func (l *TokenLedger) RevokeAllValid(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := l.Repo.RunExclusive(ctx, userID, func(ctx context.Context, w repo.TokenWriter) error {
		var err error
		n, err = w.RevokeAllValid(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}
	return n, nil
}

// RecordIssued appends a valid BEARER record without touching older ones.
func (l *TokenLedger) RecordIssued(ctx context.Context, userID, token string) error {
	if err := l.Repo.Insert(ctx, l.newRecord(userID, token)); err != nil {
		return fmt.Errorf("record token: %w", err)
	}
	return nil
}

// Rotate revokes all valid records of userID and records token, both under the per-user lock.
func (l *TokenLedger) Rotate(ctx context.Context, userID, token string) (int64, error) {
	var revoked int64
	err := l.Repo.RunExclusive(ctx, userID, func(ctx context.Context, w repo.TokenWriter) error {
		var err error
		if revoked, err = w.RevokeAllValid(ctx, userID); err != nil {
			return err
		}
		return w.Insert(ctx, l.newRecord(userID, token))
	})
	if err != nil {
		return 0, fmt.Errorf("rotate tokens: %w", err)
	}
	return revoked, nil
}

// Check returns nil when token has a live ledger record and a valid signature and expiry.
// Unknown tokens are reported as revoked.
func (l *TokenLedger) Check(ctx context.Context, token string) error {
	rec, err := l.Repo.FindByToken(ctx, token)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrTokenRevoked
	}
	if err != nil {
		return fmt.Errorf("find token: %w", err)
	}
	if !rec.Valid() {
		return ErrTokenRevoked
	}
	if _, err := l.Issuer.Validate(token); err != nil {
		return err
	}
	return nil
}

// IsCurrentlyValid reports whether Check passes. Storage errors count as not valid.
func (l *TokenLedger) IsCurrentlyValid(ctx context.Context, token string) bool {
	return l.Check(ctx, token) == nil
}

// History lists every record ever issued to userID, oldest first.
func (l *TokenLedger) History(ctx context.Context, userID string) ([]entity.TokenRecord, error) {
	return l.Repo.ListByUser(ctx, userID)
}
