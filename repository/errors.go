package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

var (
	// ErrNotFound means no record matched the lookup
	ErrNotFound = errors.New("record not found")

	// ErrConflict means a uniqueness constraint was violated, such as a
	// duplicate (client_id, name) pair or a hash/prefix collision.
	ErrConflict = errors.New("record conflicts with an existing record")
)

// IsUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
