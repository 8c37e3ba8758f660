package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	t.Parallel()

	t.Run("entity errors belong to their category", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, ErrUserNotFound, ErrNotFound)
		assert.ErrorIs(t, ErrCredentialNotFound, ErrNotFound)
		assert.ErrorIs(t, ErrUsernameExists, ErrConflict)
		assert.ErrorIs(t, ErrEmailExists, ErrConflict)
		assert.ErrorIs(t, ErrCredentialInUse, ErrConflict)
	})

	t.Run("categories stay distinct", func(t *testing.T) {
		t.Parallel()

		assert.False(t, errors.Is(ErrUserNotFound, ErrConflict))
		assert.False(t, errors.Is(ErrUsernameExists, ErrNotFound))
		assert.False(t, errors.Is(ErrInvalidArgument, ErrPersistence))
	})
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("loading user 42: %w", ErrUserNotFound)
	assert.True(t, IsNotFoundError(wrapped))
	assert.False(t, IsConflictError(wrapped))

	conflict := fmt.Errorf("creating user: %w", ErrEmailExists)
	assert.True(t, IsConflictError(conflict))
	assert.False(t, IsNotFoundError(conflict))

	invalid := fmt.Errorf("%w: id must be positive", ErrInvalidArgument)
	assert.True(t, IsInvalidArgumentError(invalid))

	assert.False(t, IsNotFoundError(errors.New("unrelated")))
	assert.False(t, IsNotFoundError(nil))
}
