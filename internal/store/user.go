package store

import (
	"context"
	"database/sql"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
)

// UserStore defines the interface for user data persistence.
//
// Every mutating operation exists in two variants: the standalone one bound
// to the connection pool, and a participating one obtained through WithTx
// that runs inside the caller's transaction and never opens or closes the
// unit of work itself.
type UserStore interface {
	// Create persists a new user and populates user.ID with the generated
	// identity. The owned credential reference is encoded as a nullable
	// foreign key: NULL when no credential is attached or its identity has
	// not been assigned yet. Returns ErrPersistence if no identity comes
	// back, ErrUsernameExists/ErrEmailExists on unique violations.
	Create(ctx context.Context, user *domain.User) error

	// Update rewrites username, email, active flag and credential foreign
	// key by identity. Soft-deleted rows are excluded; updating one
	// returns ErrUserNotFound.
	Update(ctx context.Context, user *domain.User) error

	// SoftDelete marks the user deleted without removing the row.
	// Returns ErrUserNotFound if no non-deleted row matches.
	SoftDelete(ctx context.Context, id int64) error

	// Restore clears the deleted flag. Returns ErrUserNotFound if no
	// soft-deleted row matches.
	Restore(ctx context.Context, id int64) error

	// GetByID retrieves a non-deleted user with its credential eagerly
	// loaded via outer join; a user without a credential row comes back
	// with a nil Credential. Returns ErrUserNotFound when absent.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetAll returns every non-deleted user with credentials eagerly
	// loaded. The slice is empty, not nil, when there are none.
	GetAll(ctx context.Context) ([]*domain.User, error)

	// FindByUsername looks up a non-deleted user by exact username.
	// Returns ErrInvalidArgument if the term is empty after trimming and
	// ErrUserNotFound when nothing matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByEmail looks up a non-deleted user by exact email. Same
	// contract as FindByUsername.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByCredentialID returns the non-deleted user referencing the
	// given credential identity, or ErrUserNotFound if none does.
	FindByCredentialID(ctx context.Context, credentialID int64) (*domain.User, error)

	// WithTx returns a participating variant of this store bound to the
	// provided transaction. The transaction's lifecycle belongs to the
	// caller, typically a service holding a Coordinator.
	WithTx(tx *sql.Tx) UserStore
}
