package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/internal/platform/logger"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

// PostgresCredentialStore implements the store.CredentialStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCredentialStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCredentialStore creates a new PostgreSQL implementation of the
// CredentialStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresCredentialStore(db store.DBTX, log *slog.Logger) *PostgresCredentialStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresCredentialStore{
		db:     db,
		logger: log.With(slog.String("component", "credential_store")),
	}
}

// Ensure PostgresCredentialStore implements store.CredentialStore interface
var _ store.CredentialStore = (*PostgresCredentialStore)(nil)

// WithTx implements store.CredentialStore.WithTx. The returned store is the
// participating variant: it executes on the caller's transaction and never
// settles or releases it.
func (s *PostgresCredentialStore) WithTx(tx *sql.Tx) store.CredentialStore {
	return &PostgresCredentialStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.CredentialStore.Create. The generated identity is
// read back via RETURNING and assigned to cred.ID; a missing identity is a
// persistence failure, not a silent success.
func (s *PostgresCredentialStore) Create(ctx context.Context, cred *domain.Credential) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if cred == nil {
		return fmt.Errorf("%w: nil credential", store.ErrInvalidArgument)
	}
	// Plaintext must never reach storage.
	if cred.Secret.IsPending() {
		return fmt.Errorf("%w: secret has not been hashed", store.ErrInvalidArgument)
	}

	query := `
		INSERT INTO credencial_acceso (secret_digest, salt, last_changed, requires_reset)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		cred.Secret.Digest(),
		cred.Secret.Salt(),
		cred.LastChanged,
		cred.RequiresReset,
	).Scan(&cred.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Error("credential insert returned no generated identity")
			return fmt.Errorf("%w: insert returned no generated identity", store.ErrPersistence)
		}
		log.Error("failed to create credential",
			slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("credential created",
		slog.Int64("credential_id", cred.ID))
	return nil
}

// Update implements store.CredentialStore.Update. Soft-deleted rows are
// excluded, so updating one reports the credential as not found instead of
// silently resurrecting its data.
func (s *PostgresCredentialStore) Update(ctx context.Context, cred *domain.Credential) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if cred == nil {
		return fmt.Errorf("%w: nil credential", store.ErrInvalidArgument)
	}
	if cred.Secret.IsPending() {
		return fmt.Errorf("%w: secret has not been hashed", store.ErrInvalidArgument)
	}

	query := `
		UPDATE credencial_acceso
		SET secret_digest = $1, salt = $2, last_changed = $3, requires_reset = $4
		WHERE id = $5 AND deleted = FALSE
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		cred.Secret.Digest(),
		cred.Secret.Salt(),
		cred.LastChanged,
		cred.RequiresReset,
		cred.ID,
	)
	if err != nil {
		log.Error("failed to update credential",
			slog.String("error", err.Error()),
			slog.Int64("credential_id", cred.ID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrCredentialNotFound); err != nil {
		log.Debug("credential not found for update",
			slog.Int64("credential_id", cred.ID))
		return err
	}

	log.Debug("credential updated",
		slog.Int64("credential_id", cred.ID))
	return nil
}

// SoftDelete implements store.CredentialStore.SoftDelete.
func (s *PostgresCredentialStore) SoftDelete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE credencial_acceso
		SET deleted = TRUE
		WHERE id = $1 AND deleted = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to soft-delete credential",
			slog.String("error", err.Error()),
			slog.Int64("credential_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrCredentialNotFound); err != nil {
		return err
	}

	log.Debug("credential soft-deleted",
		slog.Int64("credential_id", id))
	return nil
}

// Restore implements store.CredentialStore.Restore. Only rows currently
// soft-deleted match; restoring a live credential reports not found.
func (s *PostgresCredentialStore) Restore(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE credencial_acceso
		SET deleted = FALSE
		WHERE id = $1 AND deleted = TRUE
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to restore credential",
			slog.String("error", err.Error()),
			slog.Int64("credential_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrCredentialNotFound); err != nil {
		return err
	}

	log.Debug("credential restored",
		slog.Int64("credential_id", id))
	return nil
}

// GetByID implements store.CredentialStore.GetByID.
func (s *PostgresCredentialStore) GetByID(ctx context.Context, id int64) (*domain.Credential, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, secret_digest, salt, last_changed, requires_reset
		FROM credencial_acceso
		WHERE id = $1 AND deleted = FALSE
	`

	cred, err := scanCredential(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("credential not found",
				slog.Int64("credential_id", id))
			return nil, store.ErrCredentialNotFound
		}
		log.Error("failed to get credential by ID",
			slog.String("error", err.Error()),
			slog.Int64("credential_id", id))
		return nil, MapError(err)
	}

	return cred, nil
}

// GetAll implements store.CredentialStore.GetAll.
func (s *PostgresCredentialStore) GetAll(ctx context.Context) ([]*domain.Credential, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, secret_digest, salt, last_changed, requires_reset
		FROM credencial_acceso
		WHERE deleted = FALSE
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query credentials",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	creds := []*domain.Credential{}
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			log.Error("failed to scan credential row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return creds, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared mapping code.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCredential maps one credencial_acceso row into a domain credential
// with the secret in the hashed state.
func scanCredential(row rowScanner) (*domain.Credential, error) {
	var cred domain.Credential
	var digest, salt string

	err := row.Scan(
		&cred.ID,
		&digest,
		&salt,
		&cred.LastChanged,
		&cred.RequiresReset,
	)
	if err != nil {
		return nil, err
	}

	cred.Secret = domain.NewHashedSecret(digest, salt)
	return &cred, nil
}
