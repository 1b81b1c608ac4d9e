package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/domain/repository"
)

// TokenRepository is the in-memory token ledger. Writes for one user are
// serialized by a per-user mutex; reads only take the shared data lock.
type TokenRepository struct {
	mu      sync.RWMutex
	byToken map[string]*entity.TokenRecord
	byUser  map[string][]string

	locks keyedMutex
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		byToken: make(map[string]*entity.TokenRecord),
		byUser:  make(map[string][]string),
		locks:   keyedMutex{m: make(map[string]*sync.Mutex)},
	}
}

func (r *TokenRepository) RevokeAllValid(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.RunExclusive(ctx, userID, func(ctx context.Context, w repository.TokenWriter) error {
		var err error
		n, err = w.RevokeAllValid(ctx, userID)
		return err
	})
	return n, err
}

func (r *TokenRepository) Insert(ctx context.Context, rec entity.TokenRecord) error {
	return r.RunExclusive(ctx, rec.UserID, func(ctx context.Context, w repository.TokenWriter) error {
		return w.Insert(ctx, rec)
	})
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*entity.TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byToken[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]entity.TokenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.TokenRecord, 0, len(r.byUser[userID]))
	for _, tok := range r.byUser[userID] {
		out = append(out, *r.byToken[tok])
	}
	return out, nil
}

func (r *TokenRepository) RunExclusive(ctx context.Context, userID string, fn func(ctx context.Context, w repository.TokenWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.locks.Lock(userID)
	defer unlock()

	tx := &tokenTx{repo: r, userID: userID}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

var errForeignUser = errors.New("token write for a different user inside exclusive section")

// tokenTx applies writes immediately and keeps undo steps for rollback.
type tokenTx struct {
	repo   *TokenRepository
	userID string
	undo   []func()
}

func (tx *tokenTx) RevokeAllValid(ctx context.Context, userID string) (int64, error) {
	if userID != tx.userID {
		return 0, errForeignUser
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r := tx.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, tok := range r.byUser[userID] {
		rec := r.byToken[tok]
		if rec.Expired && rec.Revoked {
			continue
		}
		prev := *rec
		rec.Expired, rec.Revoked = true, true
		tx.undo = append(tx.undo, func() { *rec = prev })
		n++
	}
	return n, nil
}

func (tx *tokenTx) Insert(ctx context.Context, rec entity.TokenRecord) error {
	if rec.UserID != tx.userID {
		return errForeignUser
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r := tx.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byToken[rec.Token]; ok {
		return repository.ErrConflict
	}
	cp := rec
	r.byToken[rec.Token] = &cp
	r.byUser[rec.UserID] = append(r.byUser[rec.UserID], rec.Token)
	tx.undo = append(tx.undo, func() {
		delete(r.byToken, rec.Token)
		toks := r.byUser[rec.UserID]
		r.byUser[rec.UserID] = toks[:len(toks)-1]
	})
	return nil
}

func (tx *tokenTx) rollback() {
	r := tx.repo
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

// keyedMutex hands out one mutex per key. Entries are never evicted.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
