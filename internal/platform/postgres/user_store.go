package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/internal/platform/logger"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

// userSelectColumns is the projection shared by every user read: the user
// row plus its credential eagerly loaded through a LEFT JOIN, so a user
// without a credential row still maps cleanly (absent credential, not a
// partial object).
const userSelectColumns = `
	u.id, u.username, u.email, u.active, u.registered_at,
	c.id, c.secret_digest, c.salt, c.last_changed, c.requires_reset
`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the
// UserStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresUserStore(db store.DBTX, log *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: log.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx. The returned store is the
// participating variant: it executes on the caller's transaction and never
// settles or releases it.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.UserStore.Create.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user == nil {
		return fmt.Errorf("%w: nil user", store.ErrInvalidArgument)
	}

	query := `
		INSERT INTO usuarios (username, email, active, registered_at, credential_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Active,
		user.RegisteredAt,
		credentialForeignKey(user.Credential),
	).Scan(&user.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Error("user insert returned no generated identity",
				slog.String("username", user.Username))
			return fmt.Errorf("%w: insert returned no generated identity", store.ErrPersistence)
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("username", user.Username))
		return MapError(err)
	}

	log.Debug("user created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username))
	return nil
}

// Update implements store.UserStore.Update. The credential foreign key is
// rewritten along with the row: nil credential detaches it (NULL), an
// assigned credential identity attaches it. Soft-deleted rows are excluded.
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user == nil {
		return fmt.Errorf("%w: nil user", store.ErrInvalidArgument)
	}

	query := `
		UPDATE usuarios
		SET username = $1, email = $2, active = $3, credential_id = $4
		WHERE id = $5 AND deleted = FALSE
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Active,
		credentialForeignKey(user.Credential),
		user.ID,
	)
	if err != nil {
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.Int64("user_id", user.ID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		log.Debug("user not found for update",
			slog.Int64("user_id", user.ID))
		return err
	}

	log.Debug("user updated",
		slog.Int64("user_id", user.ID))
	return nil
}

// SoftDelete implements store.UserStore.SoftDelete.
func (s *PostgresUserStore) SoftDelete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE usuarios
		SET deleted = TRUE
		WHERE id = $1 AND deleted = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to soft-delete user",
			slog.String("error", err.Error()),
			slog.Int64("user_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Debug("user soft-deleted",
		slog.Int64("user_id", id))
	return nil
}

// Restore implements store.UserStore.Restore. Only rows currently
// soft-deleted match.
func (s *PostgresUserStore) Restore(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE usuarios
		SET deleted = FALSE
		WHERE id = $1 AND deleted = TRUE
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to restore user",
			slog.String("error", err.Error()),
			slog.Int64("user_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Debug("user restored",
		slog.Int64("user_id", id))
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *PostgresUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + userSelectColumns + `
		FROM usuarios u
		LEFT JOIN credencial_acceso c ON u.credential_id = c.id
		WHERE u.id = $1 AND u.deleted = FALSE
	`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found",
				slog.Int64("user_id", id))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by ID",
			slog.String("error", err.Error()),
			slog.Int64("user_id", id))
		return nil, MapError(err)
	}

	return user, nil
}

// GetAll implements store.UserStore.GetAll.
func (s *PostgresUserStore) GetAll(ctx context.Context) ([]*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + userSelectColumns + `
		FROM usuarios u
		LEFT JOIN credencial_acceso c ON u.credential_id = c.id
		WHERE u.deleted = FALSE
		ORDER BY u.id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query users",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.Error("failed to scan user row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return users, nil
}

// FindByUsername implements store.UserStore.FindByUsername. The username is
// unique among non-deleted users, so an exact match yields at most one row.
func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	term := strings.TrimSpace(username)
	if term == "" {
		return nil, fmt.Errorf("%w: search username cannot be empty", store.ErrInvalidArgument)
	}

	query := `
		SELECT ` + userSelectColumns + `
		FROM usuarios u
		LEFT JOIN credencial_acceso c ON u.credential_id = c.id
		WHERE u.deleted = FALSE AND u.username = $1
	`

	return s.findOne(ctx, query, term)
}

// FindByEmail implements store.UserStore.FindByEmail.
func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	term := strings.TrimSpace(email)
	if term == "" {
		return nil, fmt.Errorf("%w: search email cannot be empty", store.ErrInvalidArgument)
	}

	query := `
		SELECT ` + userSelectColumns + `
		FROM usuarios u
		LEFT JOIN credencial_acceso c ON u.credential_id = c.id
		WHERE u.deleted = FALSE AND u.email = $1
	`

	return s.findOne(ctx, query, term)
}

// FindByCredentialID implements store.UserStore.FindByCredentialID. Used by
// the credential service to refuse deleting a credential a live user still
// references.
func (s *PostgresUserStore) FindByCredentialID(ctx context.Context, credentialID int64) (*domain.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM usuarios u
		LEFT JOIN credencial_acceso c ON u.credential_id = c.id
		WHERE u.deleted = FALSE AND u.credential_id = $1
	`

	return s.findOne(ctx, query, credentialID)
}

// findOne runs a single-row user query and maps the miss to ErrUserNotFound.
func (s *PostgresUserStore) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to query user",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return user, nil
}

// credentialForeignKey encodes the owned credential reference as a nullable
// foreign key. Only a positive, already-assigned identity is stored; a nil
// credential or an unassigned placeholder becomes NULL.
func credentialForeignKey(cred *domain.Credential) sql.NullInt64 {
	if cred != nil && cred.ID > 0 {
		return sql.NullInt64{Int64: cred.ID, Valid: true}
	}
	return sql.NullInt64{}
}

// scanUser maps one joined row into a domain user. The credential columns
// come from a LEFT JOIN and may all be NULL; in that case the user carries
// a nil Credential.
func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var credID sql.NullInt64
	var digest, salt sql.NullString
	var lastChanged sql.NullTime
	var requiresReset sql.NullBool

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Active,
		&user.RegisteredAt,
		&credID,
		&digest,
		&salt,
		&lastChanged,
		&requiresReset,
	)
	if err != nil {
		return nil, err
	}

	if credID.Valid {
		user.Credential = &domain.Credential{
			ID:            credID.Int64,
			Secret:        domain.NewHashedSecret(digest.String, salt.String),
			LastChanged:   lastChanged.Time,
			RequiresReset: requiresReset.Bool,
		}
	}

	return &user, nil
}
