package mocks

import (
	"account-api/internal/models"
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockPasswordHasher is a mock implementation of core.PasswordHasher
type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(plaintext, digest string) bool {
	return m.Called(plaintext, digest).Bool(0)
}

// MockTokenService is a mock implementation of core.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Issue(subject string) (*models.IssuedToken, error) {
	args := m.Called(subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IssuedToken), args.Error(1)
}

func (m *MockTokenService) Verify(ctx context.Context, token string) (*models.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Claims), args.Error(1)
}

func (m *MockTokenService) Refresh(ctx context.Context, token string) (*models.IssuedToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IssuedToken), args.Error(1)
}

func (m *MockTokenService) Blacklist(ctx context.Context, claims *models.Claims) error {
	return m.Called(ctx, claims).Error(0)
}

// MockRevocationRegistry is a mock implementation of core.RevocationRegistry
type MockRevocationRegistry struct {
	mock.Mock
}

func (m *MockRevocationRegistry) Revoke(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	args := m.Called(ctx, tokenID, until)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockLogoStorage is a mock implementation of core.LogoStorage
type MockLogoStorage struct {
	mock.Mock
}

func (m *MockLogoStorage) Store(ctx context.Context, content []byte, namespace, filename, contentType string) (string, error) {
	args := m.Called(ctx, content, namespace, filename, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockLogoStorage) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}
