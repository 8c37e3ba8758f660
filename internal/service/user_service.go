package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

// UserService orchestrates user and credential persistence. Each use case
// runs inside one transaction scope: a user is never committed without its
// credential, and a failure in either sub-operation rolls back both.
//
// Pre-checks (shape, length caps, uniqueness) run before the transaction
// starts so predictable caller mistakes surface as ErrInvalidArgument or
// conflict errors instead of deep persistence failures.
type UserService struct {
	userStore         store.UserStore
	credentialService *CredentialService
	db                *sql.DB
	logger            *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userStore store.UserStore,
	credentialService *CredentialService,
	db *sql.DB,
	log *slog.Logger,
) *UserService {
	if userStore == nil {
		panic("userStore cannot be nil")
	}
	if credentialService == nil {
		panic("credentialService cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		userStore:         userStore,
		credentialService: credentialService,
		db:                db,
		logger:            log.With("component", "user_service"),
	}
}

// Create persists a new user together with its credential in one
// transaction. The credential is inserted first so its generated identity
// can be stored as the user's foreign key. If anything fails, neither row
// is persisted and the input object's identity fields stay unset.
func (s *UserService) Create(ctx context.Context, user *domain.User) error {
	if err := validateShape(user); err != nil {
		return err
	}
	if err := s.checkUsernameAvailable(ctx, user.Username, 0); err != nil {
		return err
	}
	if err := s.checkEmailAvailable(ctx, user.Email, 0); err != nil {
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.credentialService.CreateInTx(ctx, user.Credential, tx); err != nil {
			return err
		}
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		// The rollback removed both rows; the object must not claim
		// identities that no longer exist.
		user.ID = 0
		if user.Credential != nil {
			user.Credential.ID = 0
		}
		if store.IsConflictError(err) {
			s.logger.Debug("user creation conflict",
				"username", user.Username,
				"error", err)
		} else {
			s.logger.Error("failed to create user",
				"error", err,
				"username", user.Username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"username", user.Username,
		"credential_id", user.Credential.ID)
	return nil
}

// Update rewrites an existing user and, when one is attached, its
// credential, in one transaction. Uniqueness is checked excluding the
// user's own identity so keeping the same username or email is allowed.
func (s *UserService) Update(ctx context.Context, user *domain.User) error {
	if user == nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrNilUser)
	}
	if user.ID <= 0 {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrInvalidUserID)
	}
	if err := validateShapeForUpdate(user); err != nil {
		return err
	}
	if user.Credential != nil && user.Credential.ID <= 0 {
		return fmt.Errorf("%w: attached credential has no assigned identity", store.ErrInvalidArgument)
	}
	if err := s.checkUsernameAvailable(ctx, user.Username, user.ID); err != nil {
		return err
	}
	if err := s.checkEmailAvailable(ctx, user.Email, user.ID); err != nil {
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if user.Credential != nil {
			if err := s.credentialService.UpdateInTx(ctx, user.Credential, tx); err != nil {
				return err
			}
		}
		return s.userStore.WithTx(tx).Update(ctx, user)
	})
	if err != nil {
		s.logger.Error("failed to update user",
			"error", err,
			"user_id", user.ID)
		return fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("user updated", "user_id", user.ID)
	return nil
}

// Delete soft-deletes a user and its credential in one transaction. The
// user is loaded first to learn which credential to delete alongside it.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrInvalidUserID)
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		user, err := txStore.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := txStore.SoftDelete(ctx, id); err != nil {
			return err
		}

		if user.Credential != nil {
			return s.credentialService.SoftDeleteInTx(ctx, user.Credential.ID, tx)
		}
		return nil
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			s.logger.Debug("attempted to delete non-existent user", "user_id", id)
		} else {
			s.logger.Error("failed to delete user",
				"error", err,
				"user_id", id)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// Restore un-deletes a user and its credential in one transaction and
// returns the restored user. The credential restore is softened: if it
// fails, the user restore still commits and the returned error wraps
// ErrCredentialNotRestored as a notice alongside the valid user.
func (s *UserService) Restore(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrInvalidUserID)
	}

	var restored *domain.User
	var notice error

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		if err := txStore.Restore(ctx, id); err != nil {
			return err
		}

		// Reload now that the row is visible again.
		user, err := txStore.GetByID(ctx, id)
		if err != nil {
			return err
		}
		restored = user

		if user.Credential != nil {
			if err := s.credentialService.RestoreInTx(ctx, user.Credential.ID, tx); err != nil {
				s.logger.Warn("credential could not be restored with user",
					"user_id", id,
					"credential_id", user.Credential.ID,
					"error", err)
				notice = fmt.Errorf("%w: %v", ErrCredentialNotRestored, err)
			}
		}
		return nil
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			s.logger.Debug("attempted to restore non-existent user", "user_id", id)
		} else {
			s.logger.Error("failed to restore user",
				"error", err,
				"user_id", id)
		}
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}

	s.logger.Info("user restored", "user_id", id)
	return restored, notice
}

// GetByID retrieves a user with its credential eagerly loaded.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrInvalidUserID)
	}
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// GetAll lists every non-deleted user.
func (s *UserService) GetAll(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// FindByUsername looks up a user by exact username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: search username cannot be empty", store.ErrInvalidArgument)
	}
	user, err := s.userStore.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// FindByEmail looks up a user by exact email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: search email cannot be empty", store.ErrInvalidArgument)
	}
	user, err := s.userStore.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// CredentialService exposes the composed credential service for callers
// that need direct credential operations.
func (s *UserService) CredentialService() *CredentialService {
	return s.credentialService
}

// checkUsernameAvailable fails with store.ErrUsernameExists when a
// different non-deleted user already holds the username. selfID is zero
// for a new user and the user's own identity on update.
func (s *UserService) checkUsernameAvailable(ctx context.Context, username string, selfID int64) error {
	existing, err := s.userStore.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check username availability: %w", err)
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: %q", store.ErrUsernameExists, username)
	}
	return nil
}

// checkEmailAvailable is the email counterpart of checkUsernameAvailable.
func (s *UserService) checkEmailAvailable(ctx context.Context, email string, selfID int64) error {
	existing, err := s.userStore.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check email availability: %w", err)
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: %q", store.ErrEmailExists, email)
	}
	return nil
}

// validateShape enforces the create-time shape: username, email and an
// attached credential, all within column limits.
func validateShape(user *domain.User) error {
	if user == nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrNilUser)
	}
	if err := user.ValidateShape(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}
	return nil
}

// validateShapeForUpdate enforces the update-time shape. Unlike create, a
// user may be updated without touching its credential, so a nil credential
// is allowed (the foreign key is then stored as NULL).
func validateShapeForUpdate(user *domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrEmptyUsername)
	}
	if len(user.Username) > domain.MaxUsernameLength {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrUsernameTooLong)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrEmptyEmail)
	}
	if len(user.Email) > domain.MaxEmailLength {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, domain.ErrEmailTooLong)
	}
	return nil
}
