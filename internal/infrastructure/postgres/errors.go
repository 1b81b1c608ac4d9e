package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-user-management/internal/domain/repository"
)

const (
	uniqueViolation     = "23505"
	invalidTextEncoding = "22P02"
)

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return repository.ErrConflict
		case invalidTextEncoding:
			// malformed uuid in a lookup
			return repository.ErrNotFound
		}
	}
	return err
}
