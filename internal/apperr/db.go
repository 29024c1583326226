package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes treated as retryable contention or duplicates.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// FromDB classifies a storage error. Errors that already carry a kind pass
// through; record-not-found and Postgres contention map to their kinds;
// anything else is returned unchanged.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s not found", what)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &Error{Kind: ErrConflict, Message: what + " already exists", Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return &Error{Kind: ErrConflict, Message: "concurrent update, retry the request", Err: err}
		case pgUniqueViolation:
			return &Error{Kind: ErrConflict, Message: what + " already exists", Err: err}
		}
	}
	return err
}
