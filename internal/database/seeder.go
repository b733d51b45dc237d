// File: internal/database/seeder.go
package database

import (
	"context"
	"errors"
	"time"

	"account-api/internal/config"
	"account-api/internal/core"
	"account-api/internal/models"
	"account-api/internal/repository"

	"github.com/google/uuid"
)

// SeedDefaultAccount creates a default admin account for development environments.
// It goes through the credential store so it works with either driver.
func SeedDefaultAccount(ctx context.Context, app *config.Application, hasher core.PasswordHasher) {
	if !app.Config.IsDevelopment() || app.Config.DefaultUserEmail == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	logger := app.Logger.With().Str("email", app.Config.DefaultUserEmail).Logger()

	_, err := app.Store.FindByEmail(ctx, app.Config.DefaultUserEmail)
	switch {
	case err == nil:
		logger.Info().Msg("Default account already exists")
		return
	case !errors.Is(err, repository.ErrNotFound):
		logger.Error().Err(err).Msg("Failed to check for default account")
		return
	}

	digest, err := hasher.Hash(app.Config.DefaultUserPassword)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash default account password")
		return
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:             uuid.New().String(),
		Email:          app.Config.DefaultUserEmail,
		PasswordDigest: digest,
		FullName:       "Administrator",
		UserName:       app.Config.DefaultUserUsername,
		CompanyName:    "account-api",
		PhoneNumber:    "+10000000001",
		Role:           models.RoleAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := app.Store.Create(ctx, account); err != nil {
		logger.Error().Err(err).Msg("Failed to create default account")
		return
	}

	logger.Info().Str("user_name", account.UserName).Msg("Default account created successfully")
}
