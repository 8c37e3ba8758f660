package store

import (
	"context"
	"database/sql"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
)

// CredentialStore defines the interface for credential data persistence.
// See UserStore for the standalone/participating variant convention.
type CredentialStore interface {
	// Create persists a new credential and populates cred.ID with the
	// generated identity. The secret must already be hashed; a pending
	// secret is rejected with ErrInvalidArgument so plaintext can never
	// reach storage. Returns ErrPersistence if no identity comes back.
	Create(ctx context.Context, cred *domain.Credential) error

	// Update rewrites digest, salt, last-changed timestamp and reset flag
	// by identity. Soft-deleted rows are excluded; updating one returns
	// ErrCredentialNotFound.
	Update(ctx context.Context, cred *domain.Credential) error

	// SoftDelete marks the credential deleted. Returns
	// ErrCredentialNotFound if no non-deleted row matches.
	SoftDelete(ctx context.Context, id int64) error

	// Restore clears the deleted flag. Returns ErrCredentialNotFound if
	// no soft-deleted row matches.
	Restore(ctx context.Context, id int64) error

	// GetByID retrieves a non-deleted credential. Returns
	// ErrCredentialNotFound when absent.
	GetByID(ctx context.Context, id int64) (*domain.Credential, error)

	// GetAll returns every non-deleted credential.
	GetAll(ctx context.Context) ([]*domain.Credential, error)

	// WithTx returns a participating variant bound to the provided
	// transaction.
	WithTx(tx *sql.Tx) CredentialStore
}
