package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"
)

// Constraint names from the schema, used to turn unique violations into
// specific conflict errors.
const (
	usernameUniqueConstraint   = "usuarios_username_key"
	emailUniqueConstraint      = "usuarios_email_key"
	credentialUniqueConstraint = "usuarios_credential_id_key"
)

// MapError maps a database error to the store error taxonomy. It wraps the
// original error to preserve context. Every database operation in this
// package routes its errors through here or through a more specific mapper.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			switch pgErr.ConstraintName {
			case usernameUniqueConstraint:
				return fmt.Errorf("%w: %v", store.ErrUsernameExists, err)
			case emailUniqueConstraint:
				return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
			case credentialUniqueConstraint:
				return fmt.Errorf("%w: credential already owned by another user: %v", store.ErrConflict, err)
			}
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		case foreignKeyViolationCode:
			return fmt.Errorf(
				"%w: foreign key violation (%s): %v",
				store.ErrInvalidArgument,
				pgErr.ConstraintName,
				err,
			)
		case notNullViolationCode:
			return fmt.Errorf(
				"%w: not null violation (%s): %v",
				store.ErrInvalidArgument,
				pgErr.ColumnName,
				err,
			)
		}
	}

	return fmt.Errorf("%w: %v", store.ErrPersistence, err)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign
// key constraint violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected examines the number of rows affected by a database
// operation and returns notFoundErr when nothing was touched. UPDATE-based
// operations (full update, soft delete, restore) use this to detect an
// absent or already-settled target.
func CheckRowsAffected(result sql.Result, notFoundErr error) error {
	if result == nil {
		return fmt.Errorf("%w: nil result", store.ErrPersistence)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", store.ErrPersistence, err)
	}

	if rowsAffected == 0 {
		return notFoundErr
	}

	return nil
}
