package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/internal/platform/postgres"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
	"github.com/Fraanv1/TPI-Programacion-II/internal/testutils"
)

// txStores binds both stores to the test transaction.
func txStores(tx *sql.Tx, db *sql.DB) (store.UserStore, store.CredentialStore) {
	return postgres.NewPostgresUserStore(db, nil).WithTx(tx),
		postgres.NewPostgresCredentialStore(db, nil).WithTx(tx)
}

// insertUserWithCredential persists the fixture's credential and then the
// user referencing it, mirroring the service-layer insert order.
func insertUserWithCredential(
	t *testing.T,
	ctx context.Context,
	users store.UserStore,
	creds store.CredentialStore,
) *domain.User {
	t.Helper()

	user := testutils.CreateTestUser(t)
	user.Credential = hashedCredential(t, "hunter2")
	require.NoError(t, creds.Create(ctx, user.Credential))
	require.NoError(t, users.Create(ctx, user))
	return user
}

func TestPostgresUserStoreCreate(t *testing.T) {
	if !testutils.IsIntegrationTestEnvironment() {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	t.Parallel()

	db := testutils.GetTestDB(t)
	ctx := context.Background()

	t.Run("assigns the generated identity and links the credential", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)
			assert.Greater(t, user.ID, int64(0))

			loaded, err := users.GetByID(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded.Credential)
			assert.Equal(t, user.Credential.ID, loaded.Credential.ID)
			assert.Equal(t, user.Credential.Secret.Digest(), loaded.Credential.Secret.Digest())
		})
	})

	t.Run("user without an assigned credential stores a null reference", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, _ := txStores(tx, db)

			// The credential is still transient (no identity), so the
			// foreign key must be encoded as NULL, not zero.
			user := testutils.CreateTestUser(t)
			require.NoError(t, users.Create(ctx, user))

			loaded, err := users.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded.Credential)
		})
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, _ := txStores(tx, db)

			first := testutils.CreateTestUser(t)
			require.NoError(t, users.Create(ctx, first))

			dup := testutils.CreateTestUser(t)
			dup.Username = first.Username
			err := users.Create(ctx, dup)
			assert.ErrorIs(t, err, store.ErrUsernameExists)
		})
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, _ := txStores(tx, db)

			first := testutils.CreateTestUser(t)
			require.NoError(t, users.Create(ctx, first))

			dup := testutils.CreateTestUser(t)
			dup.Email = first.Email
			err := users.Create(ctx, dup)
			assert.ErrorIs(t, err, store.ErrEmailExists)
		})
	})

	t.Run("credential owned by another user conflicts", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			first := insertUserWithCredential(t, ctx, users, creds)

			second := testutils.CreateTestUser(t)
			second.Credential = first.Credential
			err := users.Create(ctx, second)
			assert.ErrorIs(t, err, store.ErrConflict)
		})
	})
}

func TestPostgresUserStoreFind(t *testing.T) {
	if !testutils.IsIntegrationTestEnvironment() {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	t.Parallel()

	db := testutils.GetTestDB(t)
	ctx := context.Background()

	t.Run("by username, email and credential", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)

			byName, err := users.FindByUsername(ctx, user.Username)
			require.NoError(t, err)
			assert.Equal(t, user.ID, byName.ID)

			byEmail, err := users.FindByEmail(ctx, user.Email)
			require.NoError(t, err)
			assert.Equal(t, user.ID, byEmail.ID)

			byCred, err := users.FindByCredentialID(ctx, user.Credential.ID)
			require.NoError(t, err)
			assert.Equal(t, user.ID, byCred.ID)
		})
	})

	t.Run("blank search terms are rejected", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, _ := txStores(tx, db)

			_, err := users.FindByUsername(ctx, "   ")
			assert.ErrorIs(t, err, store.ErrInvalidArgument)

			_, err = users.FindByEmail(ctx, "")
			assert.ErrorIs(t, err, store.ErrInvalidArgument)
		})
	})

	t.Run("misses report not found", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, _ := txStores(tx, db)

			_, err := users.FindByUsername(ctx, "nobody-here")
			assert.ErrorIs(t, err, store.ErrUserNotFound)

			_, err = users.FindByCredentialID(ctx, 99999999)
			assert.ErrorIs(t, err, store.ErrUserNotFound)
		})
	})
}

func TestPostgresUserStoreUpdate(t *testing.T) {
	if !testutils.IsIntegrationTestEnvironment() {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	t.Parallel()

	db := testutils.GetTestDB(t)
	ctx := context.Background()

	t.Run("rewrites the row", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)
			user.Email = "updated-" + user.Email
			user.Active = true
			require.NoError(t, users.Update(ctx, user))

			loaded, err := users.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.Email, loaded.Email)
			assert.True(t, loaded.Active)
		})
	})

	t.Run("detaching the credential stores null", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)
			user.Credential = nil
			require.NoError(t, users.Update(ctx, user))

			loaded, err := users.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded.Credential)
		})
	})

	t.Run("soft-deleted user cannot be updated", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)
			require.NoError(t, users.SoftDelete(ctx, user.ID))

			assert.ErrorIs(t, users.Update(ctx, user), store.ErrUserNotFound)
		})
	})
}

func TestPostgresUserStoreSoftDeleteAndRestore(t *testing.T) {
	if !testutils.IsIntegrationTestEnvironment() {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	t.Parallel()

	db := testutils.GetTestDB(t)
	ctx := context.Background()

	t.Run("delete hides the user from every read", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)
			require.NoError(t, users.SoftDelete(ctx, user.ID))

			_, err := users.GetByID(ctx, user.ID)
			assert.ErrorIs(t, err, store.ErrUserNotFound)

			_, err = users.FindByUsername(ctx, user.Username)
			assert.ErrorIs(t, err, store.ErrUserNotFound)
		})
	})

	t.Run("restore makes the user visible again", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)
			require.NoError(t, users.SoftDelete(ctx, user.ID))
			require.NoError(t, users.Restore(ctx, user.ID))

			loaded, err := users.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.Username, loaded.Username)
		})
	})

	t.Run("restore only matches soft-deleted rows", func(t *testing.T) {
		t.Parallel()
		testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			users, creds := txStores(tx, db)

			user := insertUserWithCredential(t, ctx, users, creds)
			assert.ErrorIs(t, users.Restore(ctx, user.ID), store.ErrUserNotFound)
		})
	})
}

func TestPostgresUserStoreGetAll(t *testing.T) {
	if !testutils.IsIntegrationTestEnvironment() {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	t.Parallel()

	db := testutils.GetTestDB(t)
	ctx := context.Background()

	testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		users, creds := txStores(tx, db)

		kept := insertUserWithCredential(t, ctx, users, creds)
		deleted := insertUserWithCredential(t, ctx, users, creds)
		require.NoError(t, users.SoftDelete(ctx, deleted.ID))

		all, err := users.GetAll(ctx)
		require.NoError(t, err)

		ids := make(map[int64]bool, len(all))
		for _, u := range all {
			ids[u.ID] = true
		}
		assert.True(t, ids[kept.ID], "live user should be listed")
		assert.False(t, ids[deleted.ID], "soft-deleted user should be hidden")
	})
}
