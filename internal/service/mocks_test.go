package service

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

// mockUserStore is a testify mock of store.UserStore. WithTx returns the
// mock itself so expectations apply inside and outside a transaction.
type mockUserStore struct {
	mock.Mock
}

var _ store.UserStore = (*mockUserStore)(nil)

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserStore) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserStore) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserStore) Restore(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetAll(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.([]*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) FindByCredentialID(ctx context.Context, credentialID int64) (*domain.User, error) {
	args := m.Called(ctx, credentialID)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// mockCredentialStore is a testify mock of store.CredentialStore.
type mockCredentialStore struct {
	mock.Mock
}

var _ store.CredentialStore = (*mockCredentialStore)(nil)

func (m *mockCredentialStore) Create(ctx context.Context, cred *domain.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *mockCredentialStore) Update(ctx context.Context, cred *domain.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *mockCredentialStore) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCredentialStore) Restore(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCredentialStore) GetByID(ctx context.Context, id int64) (*domain.Credential, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*domain.Credential), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCredentialStore) GetAll(ctx context.Context) ([]*domain.Credential, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.([]*domain.Credential), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCredentialStore) WithTx(tx *sql.Tx) store.CredentialStore {
	return m
}
