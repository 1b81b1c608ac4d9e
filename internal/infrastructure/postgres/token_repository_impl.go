package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/domain/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) RevokeAllValid(ctx context.Context, userID string) (int64, error) {
	return tokenWriter{q: r.pool}.RevokeAllValid(ctx, userID)
}

func (r *TokenRepository) Insert(ctx context.Context, rec entity.TokenRecord) error {
	return tokenWriter{q: r.pool}.Insert(ctx, rec)
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*entity.TokenRecord, error) {
	rec := &entity.TokenRecord{}
	var typ string
	err := r.pool.QueryRow(ctx, `
		SELECT token, user_id::text, token_type, expired, revoked, created_at
		FROM tokens
		WHERE token = $1
	`, token).Scan(&rec.Token, &rec.UserID, &typ, &rec.Expired, &rec.Revoked, &rec.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	rec.Type = entity.TokenType(typ)
	return rec, nil
}

func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]entity.TokenRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT token, user_id::text, token_type, expired, revoked, created_at
		FROM tokens
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []entity.TokenRecord
	for rows.Next() {
		var rec entity.TokenRecord
		var typ string
		if err := rows.Scan(&rec.Token, &rec.UserID, &typ, &rec.Expired, &rec.Revoked, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Type = entity.TokenType(typ)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunExclusive opens a transaction and locks the user row with SELECT ... FOR UPDATE,
// so concurrent rotations for one user run one after another.
func (r *TokenRepository) RunExclusive(ctx context.Context, userID string, fn func(ctx context.Context, w repository.TokenWriter) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked string
	if err = tx.QueryRow(ctx, `SELECT id::text FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked); err != nil {
		return mapErr(err)
	}
	if err = fn(ctx, tokenWriter{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type tokenWriter struct {
	q querier
}

func (w tokenWriter) RevokeAllValid(ctx context.Context, userID string) (int64, error) {
	tag, err := w.q.Exec(ctx, `
		UPDATE tokens
		SET expired = TRUE, revoked = TRUE
		WHERE user_id = $1 AND (NOT expired OR NOT revoked)
	`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (w tokenWriter) Insert(ctx context.Context, rec entity.TokenRecord) error {
	typ := rec.Type
	if typ == "" {
		typ = entity.TokenTypeBearer
	}
	_, err := w.q.Exec(ctx, `
		INSERT INTO tokens (token, user_id, token_type, expired, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Token, rec.UserID, string(typ), rec.Expired, rec.Revoked, rec.CreatedAt)
	return mapErr(err)
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
