package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil passes through",
			err:  nil,
			want: nil,
		},
		{
			name: "no rows becomes not found",
			err:  sql.ErrNoRows,
			want: store.ErrNotFound,
		},
		{
			name: "wrapped no rows becomes not found",
			err:  fmt.Errorf("scanning row: %w", sql.ErrNoRows),
			want: store.ErrNotFound,
		},
		{
			name: "username unique violation",
			err:  &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: usernameUniqueConstraint},
			want: store.ErrUsernameExists,
		},
		{
			name: "email unique violation",
			err:  &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: emailUniqueConstraint},
			want: store.ErrEmailExists,
		},
		{
			name: "credential unique violation",
			err:  &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: credentialUniqueConstraint},
			want: store.ErrConflict,
		},
		{
			name: "unknown unique violation",
			err:  &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "some_other_key"},
			want: store.ErrConflict,
		},
		{
			name: "foreign key violation",
			err:  &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "usuarios_credential_id_fkey"},
			want: store.ErrInvalidArgument,
		},
		{
			name: "not null violation",
			err:  &pgconn.PgError{Code: notNullViolationCode, ColumnName: "username"},
			want: store.ErrInvalidArgument,
		},
		{
			name: "anything else becomes persistence failure",
			err:  errors.New("connection reset by peer"),
			want: store.ErrPersistence,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := MapError(tc.err)
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestViolationHelpers(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: uniqueViolationCode}
	fk := &pgconn.PgError{Code: foreignKeyViolationCode}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
}

// fakeResult implements sql.Result for CheckRowsAffected tests.
type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	t.Run("rows touched", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, store.ErrUserNotFound))
	})

	t.Run("no rows touched returns the given error", func(t *testing.T) {
		t.Parallel()
		err := CheckRowsAffected(fakeResult{rows: 0}, store.ErrUserNotFound)
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("nil result", func(t *testing.T) {
		t.Parallel()
		err := CheckRowsAffected(nil, store.ErrUserNotFound)
		assert.ErrorIs(t, err, store.ErrPersistence)
	})

	t.Run("driver cannot report rows", func(t *testing.T) {
		t.Parallel()
		err := CheckRowsAffected(fakeResult{err: errors.New("not supported")}, store.ErrUserNotFound)
		assert.ErrorIs(t, err, store.ErrPersistence)
	})
}
