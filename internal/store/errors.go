package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations. Services and
// the presentation layer check these with errors.Is; implementations wrap
// them with context via fmt.Errorf("%w: ...").
var (
	// ErrInvalidArgument is returned when input is malformed or out of
	// range. The caller is at fault and retrying cannot help.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a referenced entity does not exist or
	// has been soft-deleted. This is the generic version of the
	// entity-specific not found errors below.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an operation would violate uniqueness
	// or referential safety, such as reusing a username or deleting a
	// credential that a live user still references.
	ErrConflict = errors.New("conflict")

	// ErrPersistence is returned on unexpected storage failures, including
	// an insert that reports no generated identity.
	ErrPersistence = errors.New("persistence failure")

	// ErrConnection is returned when the backing store cannot be reached
	// or the connection handed to an operation is unusable.
	ErrConnection = errors.New("connection unavailable")

	// ErrTransactionState is returned when a coordinator method is called
	// outside the state that permits it, such as committing a transaction
	// that was never begun.
	ErrTransactionState = errors.New("invalid transaction state")

	// Entity-specific "not found" errors

	// ErrUserNotFound indicates the requested user does not exist among
	// non-deleted rows.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrCredentialNotFound indicates the requested credential does not
	// exist among non-deleted rows.
	ErrCredentialNotFound = fmt.Errorf("%w: credential", ErrNotFound)

	// Entity-specific conflict errors

	// ErrUsernameExists indicates a non-deleted user already holds the
	// username.
	ErrUsernameExists = fmt.Errorf("%w: username already in use", ErrConflict)

	// ErrEmailExists indicates a non-deleted user already holds the email.
	ErrEmailExists = fmt.Errorf("%w: email already in use", ErrConflict)

	// ErrCredentialInUse indicates a non-deleted user still references the
	// credential, so deleting it alone would strand the user.
	ErrCredentialInUse = fmt.Errorf("%w: credential referenced by an active user", ErrConflict)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if the error is any kind of conflict error.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidArgumentError checks if the error reports malformed input.
func IsInvalidArgumentError(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
