package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/internal/hashing"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

// CredentialService manages access credentials. It prepares secrets for
// storage (salt generation and digest derivation) and guards the one safety
// check the store cannot do itself: refusing to delete a credential a
// non-deleted user still references.
//
// The *InTx methods are participating variants used by UserService to
// compose credential operations into its own transaction scope.
type CredentialService struct {
	credentialStore store.CredentialStore
	userStore       store.UserStore
	db              *sql.DB
	logger          *slog.Logger
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(
	credentialStore store.CredentialStore,
	userStore store.UserStore,
	db *sql.DB,
	log *slog.Logger,
) *CredentialService {
	if credentialStore == nil {
		panic("credentialStore cannot be nil")
	}
	if userStore == nil {
		panic("userStore cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CredentialService{
		credentialStore: credentialStore,
		userStore:       userStore,
		db:              db,
		logger:          log.With("component", "credential_service"),
	}
}

// Get retrieves a credential by its identity.
func (s *CredentialService) Get(ctx context.Context, id int64) (*domain.Credential, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: credential ID must be greater than zero", store.ErrInvalidArgument)
	}
	cred, err := s.credentialStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve credential: %w", err)
	}
	return cred, nil
}

// GetAll lists every non-deleted credential.
func (s *CredentialService) GetAll(ctx context.Context) ([]*domain.Credential, error) {
	creds, err := s.credentialStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// Create persists a standalone credential. The secret must be pending: the
// salt and digest are always derived fresh here, never taken from the
// caller.
func (s *CredentialService) Create(ctx context.Context, cred *domain.Credential) error {
	if err := s.prepareForInsert(cred); err != nil {
		return err
	}
	if err := s.credentialStore.Create(ctx, cred); err != nil {
		s.logger.Error("failed to create credential", "error", err)
		return fmt.Errorf("failed to create credential: %w", err)
	}
	s.logger.Info("credential created", "credential_id", cred.ID)
	return nil
}

// Update rewrites a persisted credential. A pending secret is re-derived
// with a fresh salt; a hashed secret is stored as-is. The last-changed
// timestamp is refreshed either way.
func (s *CredentialService) Update(ctx context.Context, cred *domain.Credential) error {
	if err := s.prepareForUpdate(cred); err != nil {
		return err
	}
	if err := s.credentialStore.Update(ctx, cred); err != nil {
		s.logger.Error("failed to update credential",
			"error", err,
			"credential_id", cred.ID)
		return fmt.Errorf("failed to update credential: %w", err)
	}
	s.logger.Info("credential updated", "credential_id", cred.ID)
	return nil
}

// Delete soft-deletes a standalone credential. It refuses with
// store.ErrCredentialInUse while a non-deleted user references the
// credential; deleting through UserService.Delete is the safe path for
// owned credentials. The check and the delete share one transaction scope.
func (s *CredentialService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: credential ID must be greater than zero", store.ErrInvalidArgument)
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.checkNotInUse(ctx, s.userStore.WithTx(tx), id); err != nil {
			return err
		}
		return s.credentialStore.WithTx(tx).SoftDelete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrCredentialInUse) {
			s.logger.Debug("refused to delete credential in use", "credential_id", id)
		} else {
			s.logger.Error("failed to delete credential",
				"error", err,
				"credential_id", id)
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	s.logger.Info("credential deleted", "credential_id", id)
	return nil
}

// Restore clears the deleted flag on a standalone credential.
func (s *CredentialService) Restore(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: credential ID must be greater than zero", store.ErrInvalidArgument)
	}
	if err := s.credentialStore.Restore(ctx, id); err != nil {
		s.logger.Error("failed to restore credential",
			"error", err,
			"credential_id", id)
		return fmt.Errorf("failed to restore credential: %w", err)
	}
	s.logger.Info("credential restored", "credential_id", id)
	return nil
}

// CreateInTx is the participating variant of Create, executing inside the
// caller's transaction. It never opens or settles the transaction.
func (s *CredentialService) CreateInTx(ctx context.Context, cred *domain.Credential, tx *sql.Tx) error {
	if err := s.prepareForInsert(cred); err != nil {
		return err
	}
	return s.credentialStore.WithTx(tx).Create(ctx, cred)
}

// UpdateInTx is the participating variant of Update.
func (s *CredentialService) UpdateInTx(ctx context.Context, cred *domain.Credential, tx *sql.Tx) error {
	if err := s.prepareForUpdate(cred); err != nil {
		return err
	}
	if cred.ID <= 0 {
		return fmt.Errorf("%w: credential ID must be greater than zero for update", store.ErrInvalidArgument)
	}
	return s.credentialStore.WithTx(tx).Update(ctx, cred)
}

// SoftDeleteInTx is the participating variant of the soft delete. The
// referential safety check is the caller's responsibility here: UserService
// invokes this only for the credential owned by the user being deleted.
func (s *CredentialService) SoftDeleteInTx(ctx context.Context, id int64, tx *sql.Tx) error {
	if id <= 0 {
		return fmt.Errorf("%w: credential ID must be greater than zero", store.ErrInvalidArgument)
	}
	return s.credentialStore.WithTx(tx).SoftDelete(ctx, id)
}

// RestoreInTx is the participating variant of Restore.
func (s *CredentialService) RestoreInTx(ctx context.Context, id int64, tx *sql.Tx) error {
	if id <= 0 {
		return fmt.Errorf("%w: credential ID must be greater than zero", store.ErrInvalidArgument)
	}
	return s.credentialStore.WithTx(tx).Restore(ctx, id)
}

// checkNotInUse fails with store.ErrCredentialInUse when a non-deleted user
// references the credential.
func (s *CredentialService) checkNotInUse(ctx context.Context, users store.UserStore, id int64) error {
	owner, err := users.FindByCredentialID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check credential references: %w", err)
	}
	return fmt.Errorf("%w: user %d", store.ErrCredentialInUse, owner.ID)
}

// prepareForInsert derives a fresh salt and digest for a new credential.
// The secret must still be pending; a credential arriving already hashed
// would skip the mandatory derivation and is rejected.
func (s *CredentialService) prepareForInsert(cred *domain.Credential) error {
	if cred == nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrNilCredential)
	}
	if !cred.Secret.IsPending() {
		return fmt.Errorf("%w: new credential must carry a pending secret", store.ErrInvalidArgument)
	}
	return s.deriveSecret(cred)
}

// prepareForUpdate re-derives the secret only when it is pending (the
// caller supplied a new plaintext); an already-hashed secret keeps its
// digest and salt. The last-changed timestamp is always refreshed.
func (s *CredentialService) prepareForUpdate(cred *domain.Credential) error {
	if cred == nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrNilCredential)
	}
	if cred.Secret.IsPending() {
		return s.deriveSecret(cred)
	}
	cred.LastChanged = time.Now().UTC()
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}
	return nil
}

// deriveSecret turns a pending secret into a hashed one and stamps the
// last-changed timestamp. Salt generation failing means the entropy source
// is gone; that aborts the operation.
func (s *CredentialService) deriveSecret(cred *domain.Credential) error {
	plaintext := cred.Secret.Plaintext()
	if plaintext == "" {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrEmptyPlaintext)
	}

	salt, err := hashing.GenerateSalt()
	if err != nil {
		return fmt.Errorf("cannot derive credential secret: %w", err)
	}

	cred.Secret = domain.NewHashedSecret(hashing.DeriveDigest(plaintext, salt), salt)
	cred.LastChanged = time.Now().UTC()

	if err := cred.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}
	return nil
}
