package core

import (
	"account-api/internal/models"
	"context"
	"time"
)

// CredentialStore defines direct persistence operations on accounts.
// Create and UpdateByID enforce email/userName uniqueness atomically.
type CredentialStore interface {
	// Auth & Basic
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)

	// Profile
	UpdateByID(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error)

	// Uniqueness (advisory)
	ExistsByEmailExcluding(ctx context.Context, email, excludeID string) (bool, error)
	ExistsByUserNameExcluding(ctx context.Context, userName, excludeID string) (bool, error)
}

// PasswordHasher turns plaintext passwords into one-way digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenService issues and checks bearer tokens.
type TokenService interface {
	Issue(subject string) (*models.IssuedToken, error)
	Verify(ctx context.Context, token string) (*models.Claims, error)
	Refresh(ctx context.Context, token string) (*models.IssuedToken, error)
	Blacklist(ctx context.Context, claims *models.Claims) error
}

// RevocationRegistry remembers revoked token ids until they can no longer be used anyway.
// Revoke reports whether this call was the one that revoked the id.
type RevocationRegistry interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LogoStorage persists uploaded logos and returns their storage-relative path.
// Store never overwrites; Delete takes a path returned by Store.
type LogoStorage interface {
	Store(ctx context.Context, content []byte, namespace, filename, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

// AccountService defines the business logic.
type AccountService interface {
	// Auth
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Authenticate(ctx context.Context, rawToken string) (*models.Principal, error)
	Logout(ctx context.Context, principal *models.Principal) error
	Refresh(ctx context.Context, rawToken string) (*models.AuthResult, error)

	// Profile
	GetUser(ctx context.Context, principal *models.Principal) (*models.Account, error)
	UpdateUser(ctx context.Context, principal *models.Principal, req models.UpdateAccountRequest) (*models.Account, error)
}
