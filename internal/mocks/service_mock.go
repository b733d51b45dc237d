package mocks

import (
	"account-api/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAccountService is a mock implementation of core.AccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResult), args.Error(1)
}

func (m *MockAccountService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResult), args.Error(1)
}

func (m *MockAccountService) Authenticate(ctx context.Context, rawToken string) (*models.Principal, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

func (m *MockAccountService) Logout(ctx context.Context, principal *models.Principal) error {
	return m.Called(ctx, principal).Error(0)
}

func (m *MockAccountService) Refresh(ctx context.Context, rawToken string) (*models.AuthResult, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResult), args.Error(1)
}

func (m *MockAccountService) GetUser(ctx context.Context, principal *models.Principal) (*models.Account, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountService) UpdateUser(ctx context.Context, principal *models.Principal, req models.UpdateAccountRequest) (*models.Account, error) {
	args := m.Called(ctx, principal, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
