// Package testutils provides shared helpers for the test suites: fixture
// constructors with randomized identities and database setup for integration
// tests with transaction-based isolation.
//
// Integration tests require a reachable PostgreSQL instance configured via
// the DATABASE_URL environment variable and skip themselves otherwise.
package testutils

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/migrations"
)

// migrationsRunOnce ensures the schema is migrated once per test binary.
var migrationsRunOnce sync.Once

// IsIntegrationTestEnvironment returns true when a database connection is
// configured. Integration tests check this and skip otherwise.
func IsIntegrationTestEnvironment() bool {
	return os.Getenv("DATABASE_URL") != ""
}

// GetTestDatabaseURL returns the configured database URL or fails the test.
func GetTestDatabaseURL(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL environment variable is required for this test")
	}
	return dbURL
}

// GetTestDB opens a connection pool against the test database, applies the
// schema migrations once, and registers cleanup to close the pool.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", GetTestDatabaseURL(t))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, db.Ping(), "failed to reach test database")
	require.NoError(t, setupSchema(db), "failed to migrate test database")

	return db
}

// setupSchema applies the embedded migrations to the test database.
func setupSchema(db *sql.DB) error {
	var setupErr error
	migrationsRunOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		if err := goose.SetDialect("postgres"); err != nil {
			setupErr = fmt.Errorf("failed to set migration dialect: %w", err)
			return
		}
		if err := goose.Up(db, "."); err != nil {
			setupErr = fmt.Errorf("failed to run migrations: %w", err)
		}
	})
	return setupErr
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// can run in parallel against shared tables without leaving rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin test transaction")
	defer func() {
		_ = tx.Rollback()
	}()

	fn(t, tx)
}

// SetupEnv sets environment variables for a test and returns a cleanup
// function restoring the previous values.
func SetupEnv(t *testing.T, envVars map[string]string) func() {
	t.Helper()

	originalValues := make(map[string]string, len(envVars))
	for name := range envVars {
		originalValues[name] = os.Getenv(name)
	}

	for name, value := range envVars {
		require.NoError(t, os.Setenv(name, value), "failed to set environment variable %s", name)
	}

	return func() {
		for name, value := range originalValues {
			if value == "" {
				_ = os.Unsetenv(name)
			} else {
				_ = os.Setenv(name, value)
			}
		}
	}
}

// CreateTestUser builds a transient user with a unique username and email so
// concurrent tests never collide on the uniqueness constraints.
func CreateTestUser(t *testing.T) *domain.User {
	t.Helper()

	suffix := uuid.New().String()[:8]
	user, err := domain.NewUser(
		fmt.Sprintf("user-%s", suffix),
		fmt.Sprintf("user-%s@example.com", suffix),
		"correct-horse-battery-staple",
	)
	require.NoError(t, err, "failed to create test user")
	return user
}

// CreateTestCredential builds a transient credential with a pending secret.
func CreateTestCredential(t *testing.T) *domain.Credential {
	t.Helper()

	cred, err := domain.NewCredential("plaintext-" + uuid.New().String()[:8])
	require.NoError(t, err, "failed to create test credential")
	return cred
}
