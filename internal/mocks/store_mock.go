package mocks

import (
	"account-api/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCredentialStore is a mock implementation of core.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Create(ctx context.Context, account *models.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockCredentialStore) UpdateByID(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockCredentialStore) ExistsByEmailExcluding(ctx context.Context, email, excludeID string) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialStore) ExistsByUserNameExcluding(ctx context.Context, userName, excludeID string) (bool, error) {
	args := m.Called(ctx, userName, excludeID)
	return args.Bool(0), args.Error(1)
}
