package service

import (
	"account-api/internal/apperror"
	"account-api/internal/core"
	"account-api/internal/hashing"
	"account-api/internal/mocks"
	"account-api/internal/models"
	"account-api/internal/repository"
	"account-api/internal/storage"
	"account-api/internal/token"
	"account-api/internal/validation"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	svc   *AccountService
	store core.CredentialStore
	logos *mocks.MockLogoStorage
}

// newHarness wires the service with real in-memory collaborators and a mocked logo store.
func newHarness(t *testing.T) *harness {
	t.Helper()
	store := repository.NewMemoryAccountStore()
	logos := new(mocks.MockLogoStorage)
	svc := NewAccountService(Deps{
		Store:  store,
		Hasher: hashing.NewBcryptHasher(bcrypt.MinCost),
		Tokens: token.NewJWTService(testSecret, time.Hour, 14*24*time.Hour, token.NewMemoryRevocationRegistry()),
		Logos:  logos,
		Rules:  validation.NewRuleSet(store, validation.Options{}),
		Logger: zerolog.Nop(),
	})
	return &harness{svc: svc, store: store, logos: logos}
}

func registration(email, userName string) models.RegisterRequest {
	return models.RegisterRequest{
		Email:                email,
		Password:             "password1",
		PasswordConfirmation: "password1",
		FullName:             "A B",
		UserName:             userName,
		CompanyName:          "C",
		PhoneNumber:          "+12223334444",
		Role:                 "user",
	}
}

func pngBytes() []byte {
	return []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
}

func requireAppError(t *testing.T, err error, status int, message string) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr), "expected *apperror.Error, got %T", err)
	assert.Equal(t, status, appErr.Status())
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
	return appErr
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
		require.NoError(t, err)

		assert.NotEmpty(t, res.Account.ID)
		assert.Equal(t, "a@b.com", res.Account.Email)
		assert.NotEqual(t, "password1", res.Account.PasswordDigest)
		assert.Equal(t, models.RoleUser, res.Account.Role)
		assert.Equal(t, "bearer", res.Authorization.Type)
		assert.Equal(t, int64(3600), res.Authorization.ExpiresIn)

		principal, err := h.svc.Authenticate(ctx, res.Authorization.Token)
		require.NoError(t, err)
		assert.Equal(t, res.Account.ID, principal.Claims.Subject)
	})

	t.Run("Sanitizes free text", func(t *testing.T) {
		h := newHarness(t)
		req := registration("a@b.com", "ab12345678")
		req.FullName = "<b>Ann</b>"
		comment := "<script>x</script>hi"
		req.Comments = &comment

		res, err := h.svc.Register(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Ann", res.Account.FullName)
		require.NotNil(t, res.Account.Comments)
		assert.Equal(t, "hi", *res.Account.Comments)
	})

	t.Run("Stores text verbatim apart from markup", func(t *testing.T) {
		h := newHarness(t)
		req := registration("a@b.com", "ab12345678")
		req.FullName = "Tom & Jerry"
		req.CompanyName = strings.Repeat("&", 255)

		_, err := h.svc.Register(ctx, req)
		require.NoError(t, err)

		stored, err := h.store.FindByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "Tom & Jerry", stored.FullName)
		assert.Len(t, stored.CompanyName, 255)
	})

	t.Run("Fail_MarkupOnlyName", func(t *testing.T) {
		h := newHarness(t)
		req := registration("a@b.com", "ab12345678")
		req.FullName = "<b></b>"

		_, err := h.svc.Register(ctx, req)
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, "")
		assert.NotEmpty(t, appErr.Fields["fullName"])

		_, err = h.store.FindByEmail(ctx, "a@b.com")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Fail_Duplicate", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
		require.NoError(t, err)

		_, err = h.svc.Register(ctx, registration("a@b.com", "other"))
		requireAppError(t, err, http.StatusConflict, apperror.MsgDuplicateAccount)
	})

	t.Run("Duplicate wins over password mismatch", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
		require.NoError(t, err)

		req := registration("x@y.com", "ab12345678")
		req.PasswordConfirmation = "different1"
		_, err = h.svc.Register(ctx, req)
		requireAppError(t, err, http.StatusConflict, apperror.MsgDuplicateAccount)
	})

	t.Run("Fail_PasswordMismatch", func(t *testing.T) {
		h := newHarness(t)
		req := registration("a@b.com", "ab12345678")
		req.PasswordConfirmation = "different1"

		_, err := h.svc.Register(ctx, req)
		requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgPasswordMismatch)
	})

	t.Run("Fail_UserNameTooLong", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Register(ctx, registration("a@b.com", "abcdefghijk"))
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgValidationFailed)
		assert.Contains(t, appErr.Fields["userName"], "Username length must be at most 10 characters")
	})

	t.Run("Stores logos", func(t *testing.T) {
		h := newHarness(t)
		h.logos.On("Store", mock.Anything, pngBytes(), "logos/users", mock.MatchedBy(func(name string) bool {
			return len(name) > len("_user_logo.png")
		}), "image/png").Return("logos/users/1_user_logo.png", nil).Once()

		req := registration("a@b.com", "ab12345678")
		req.UserLogo = &models.LogoUpload{Field: "userLogo", OriginalName: "me.png", Content: pngBytes(), Size: int64(len(pngBytes()))}

		res, err := h.svc.Register(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, res.Account.UserLogoPath)
		assert.Equal(t, "logos/users/1_user_logo.png", *res.Account.UserLogoPath)
		assert.Nil(t, res.Account.CompanyLogo)
		h.logos.AssertExpectations(t)
	})

	t.Run("Fail_LogoStorage", func(t *testing.T) {
		h := newHarness(t)
		h.logos.On("Store", mock.Anything, mock.Anything, "logos/companies", mock.Anything, mock.Anything).
			Return("", errors.New("disk full")).Once()

		req := registration("a@b.com", "ab12345678")
		req.CompanyLogo = &models.LogoUpload{Field: "companyLogo", OriginalName: "co.png", Content: pngBytes(), Size: int64(len(pngBytes()))}

		_, err := h.svc.Register(ctx, req)
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgInvalidFile)
		assert.Equal(t, []string{apperror.MsgInvalidFile}, appErr.Fields["companyLogo"])

		_, err = h.store.FindByEmail(ctx, "a@b.com")
		assert.ErrorIs(t, err, repository.ErrNotFound, "nothing is persisted when the upload fails")
	})

	t.Run("Concurrent same user name", func(t *testing.T) {
		h := newHarness(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, email := range []string{"one@b.com", "two@b.com"} {
			wg.Add(1)
			go func(i int, email string) {
				defer wg.Done()
				_, errs[i] = h.svc.Register(ctx, registration(email, "samename"))
			}(i, email)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			requireAppError(t, err, http.StatusConflict, apperror.MsgDuplicateAccount)
		}
		assert.Equal(t, 1, succeeded)
	})
}

func TestRegister_StoreFailures(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockCredentialStore)
	hasher := new(mocks.MockPasswordHasher)
	tokens := new(mocks.MockTokenService)
	svc := NewAccountService(Deps{
		Store:  store,
		Hasher: hasher,
		Tokens: tokens,
		Rules:  validation.NewRuleSet(store, validation.Options{}),
		Logger: zerolog.Nop(),
	})

	store.On("ExistsByEmailExcluding", mock.Anything, mock.Anything, "").Return(false, nil)
	store.On("ExistsByUserNameExcluding", mock.Anything, mock.Anything, "").Return(false, nil)
	hasher.On("Hash", "password1").Return("digest", nil)

	t.Run("Lost uniqueness race", func(t *testing.T) {
		store.On("Create", mock.Anything, mock.AnythingOfType("*models.Account")).Return(repository.ErrDuplicateUserName).Once()

		_, err := svc.Register(ctx, registration("a@b.com", "ab12345678"))
		requireAppError(t, err, http.StatusConflict, apperror.MsgDuplicateAccount)
		tokens.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("Database down", func(t *testing.T) {
		store.On("Create", mock.Anything, mock.AnythingOfType("*models.Account")).Return(errors.New("connection refused")).Once()

		_, err := svc.Register(ctx, registration("a@b.com", "ab12345678"))
		requireAppError(t, err, http.StatusInternalServerError, apperror.MsgInternal)
	})

	t.Run("Uniqueness lookup fails", func(t *testing.T) {
		failing := new(mocks.MockCredentialStore)
		failing.On("ExistsByEmailExcluding", mock.Anything, mock.Anything, "").Return(false, errors.New("timeout"))
		failing.On("ExistsByUserNameExcluding", mock.Anything, mock.Anything, "").Return(false, nil)
		svc := NewAccountService(Deps{Store: failing, Hasher: hasher, Tokens: tokens, Rules: validation.NewRuleSet(failing, validation.Options{})})

		_, err := svc.Register(ctx, registration("a@b.com", "ab12345678"))
		requireAppError(t, err, http.StatusInternalServerError, "")
		failing.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRegister_DiscardsLogosOnFailure(t *testing.T) {
	ctx := context.Background()
	withLogos := func() models.RegisterRequest {
		req := registration("a@b.com", "ab12345678")
		req.UserLogo = &models.LogoUpload{Field: "userLogo", OriginalName: "me.png", Content: pngBytes(), Size: int64(len(pngBytes()))}
		req.CompanyLogo = &models.LogoUpload{Field: "companyLogo", OriginalName: "co.png", Content: pngBytes(), Size: int64(len(pngBytes()))}
		return req
	}
	newService := func(store *mocks.MockCredentialStore, logos *mocks.MockLogoStorage) *AccountService {
		store.On("ExistsByEmailExcluding", mock.Anything, mock.Anything, "").Return(false, nil)
		store.On("ExistsByUserNameExcluding", mock.Anything, mock.Anything, "").Return(false, nil)
		return NewAccountService(Deps{
			Store:  store,
			Hasher: hashing.NewBcryptHasher(bcrypt.MinCost),
			Tokens: token.NewJWTService(testSecret, time.Hour, 14*24*time.Hour, token.NewMemoryRevocationRegistry()),
			Logos:  logos,
			Rules:  validation.NewRuleSet(store, validation.Options{}),
			Logger: zerolog.Nop(),
		})
	}

	t.Run("Account creation loses the race", func(t *testing.T) {
		store, logos := new(mocks.MockCredentialStore), new(mocks.MockLogoStorage)
		svc := newService(store, logos)
		logos.On("Store", mock.Anything, mock.Anything, "logos/users", mock.Anything, mock.Anything).Return("logos/users/u.png", nil).Once()
		logos.On("Store", mock.Anything, mock.Anything, "logos/companies", mock.Anything, mock.Anything).Return("logos/companies/c.png", nil).Once()
		logos.On("Delete", mock.Anything, "logos/users/u.png").Return(nil).Once()
		logos.On("Delete", mock.Anything, "logos/companies/c.png").Return(errors.New("gone")).Once()
		store.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEmail).Once()

		_, err := svc.Register(ctx, withLogos())
		requireAppError(t, err, http.StatusConflict, apperror.MsgDuplicateAccount)
		logos.AssertExpectations(t)
	})

	t.Run("Second upload fails", func(t *testing.T) {
		store, logos := new(mocks.MockCredentialStore), new(mocks.MockLogoStorage)
		svc := newService(store, logos)
		logos.On("Store", mock.Anything, mock.Anything, "logos/users", mock.Anything, mock.Anything).Return("logos/users/u.png", nil).Once()
		logos.On("Store", mock.Anything, mock.Anything, "logos/companies", mock.Anything, mock.Anything).Return("", storage.ErrLogoExists).Once()
		logos.On("Delete", mock.Anything, "logos/users/u.png").Return(nil).Once()

		_, err := svc.Register(ctx, withLogos())
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgInvalidFile)
		assert.NotEmpty(t, appErr.Fields["companyLogo"])
		logos.AssertExpectations(t)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Kept once the account exists", func(t *testing.T) {
		store, logos := new(mocks.MockCredentialStore), new(mocks.MockLogoStorage)
		svc := newService(store, logos)
		logos.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("logos/x.png", nil).Twice()
		store.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := svc.Register(ctx, withLogos())
		require.NoError(t, err)
		logos.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	registered, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		res, err := h.svc.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "password1"})
		require.NoError(t, err)
		assert.Equal(t, registered.Account.ID, res.Account.ID)

		claims, err := h.svc.tokens.Verify(ctx, res.Authorization.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.Account.ID, claims.Subject)
	})

	t.Run("Wrong password and unknown email look the same", func(t *testing.T) {
		_, wrongPassword := h.svc.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "password2"})
		_, unknown := h.svc.Login(ctx, models.LoginRequest{Email: "nobody@b.com", Password: "password1"})

		requireAppError(t, wrongPassword, http.StatusUnauthorized, apperror.MsgInvalidCredentials)
		requireAppError(t, unknown, http.StatusUnauthorized, apperror.MsgInvalidCredentials)
	})

	t.Run("Malformed email", func(t *testing.T) {
		_, err := h.svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "password1"})
		requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgWrongEmailType)
	})

	t.Run("Short password", func(t *testing.T) {
		_, err := h.svc.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "short"})
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgValidationFailed)
		assert.NotEmpty(t, appErr.Fields["password"])
	})
}

func TestLogin_StoreDown(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockCredentialStore)
	svc := NewAccountService(Deps{Store: store, Rules: validation.NewRuleSet(store, validation.Options{})})

	store.On("FindByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("connection refused")).Once()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "password1"})
	requireAppError(t, err, http.StatusInternalServerError, apperror.MsgInternal)
	store.AssertExpectations(t)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		principal, err := h.svc.Authenticate(ctx, res.Authorization.Token)
		require.NoError(t, err)
		assert.Equal(t, res.Account.ID, principal.Account.ID)
		assert.Equal(t, res.Authorization.Token, principal.Token)
	})

	t.Run("Missing token", func(t *testing.T) {
		_, err := h.svc.Authenticate(ctx, "")
		requireAppError(t, err, http.StatusUnauthorized, apperror.MsgUnauthenticated)
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, err := h.svc.Authenticate(ctx, "abc.def.ghi")
		requireAppError(t, err, http.StatusUnauthorized, apperror.MsgUnauthenticated)
	})

	t.Run("Subject no longer exists", func(t *testing.T) {
		issued, err := h.svc.tokens.Issue("00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)

		_, err = h.svc.Authenticate(ctx, issued.Token)
		requireAppError(t, err, http.StatusUnauthorized, apperror.MsgUnauthenticated)
	})

	t.Run("Revocation store down", func(t *testing.T) {
		tokens := new(mocks.MockTokenService)
		tokens.On("Verify", mock.Anything, "tok").Return(nil, errors.New("redis: connection refused")).Once()
		svc := NewAccountService(Deps{Tokens: tokens})

		_, err := svc.Authenticate(ctx, "tok")
		requireAppError(t, err, http.StatusInternalServerError, apperror.MsgInternal)
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
	require.NoError(t, err)

	principal, err := h.svc.Authenticate(ctx, res.Authorization.Token)
	require.NoError(t, err)

	first, err := h.svc.GetUser(ctx, principal)
	require.NoError(t, err)
	second, err := h.svc.GetUser(ctx, principal)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "a@b.com", first.Email)

	_, err = h.svc.GetUser(ctx, nil)
	requireAppError(t, err, http.StatusUnauthorized, "")
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*harness, *models.Principal) {
		h := newHarness(t)
		res, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
		require.NoError(t, err)
		principal, err := h.svc.Authenticate(ctx, res.Authorization.Token)
		require.NoError(t, err)
		return h, principal
	}
	str := func(s string) *string { return &s }

	t.Run("Returns the snapshot from before the update", func(t *testing.T) {
		h, principal := setup(t)

		got, err := h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{FullName: str("New Name")})
		require.NoError(t, err)
		assert.Equal(t, "A B", got.FullName)

		stored, err := h.store.FindByID(ctx, principal.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Name", stored.FullName)
	})

	t.Run("Keeping own email and user name is allowed", func(t *testing.T) {
		h, principal := setup(t)

		_, err := h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{
			Email:    str("a@b.com"),
			UserName: str("ab12345678"),
		})
		assert.NoError(t, err)
	})

	t.Run("Taking another account's email", func(t *testing.T) {
		h, principal := setup(t)
		_, err := h.svc.Register(ctx, registration("c@d.com", "other"))
		require.NoError(t, err)

		_, err = h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{Email: str("c@d.com")})
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgValidationFailed)
		assert.NotEmpty(t, appErr.Fields["email"])
	})

	t.Run("Filled fields cannot be blanked", func(t *testing.T) {
		h, principal := setup(t)

		_, err := h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{FullName: str("")})
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgValidationFailed)
		assert.NotEmpty(t, appErr.Fields["fullName"])
	})

	t.Run("Markup-only name counts as blank", func(t *testing.T) {
		h, principal := setup(t)

		_, err := h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{FullName: str("<i></i>")})
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgValidationFailed)
		assert.NotEmpty(t, appErr.Fields["fullName"])

		stored, err := h.store.FindByID(ctx, principal.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, "A B", stored.FullName)
	})

	t.Run("Entities survive an update", func(t *testing.T) {
		h, principal := setup(t)

		_, err := h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{CompanyName: str("R&D <b>Labs</b>")})
		require.NoError(t, err)

		stored, err := h.store.FindByID(ctx, principal.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, "R&D Labs", stored.CompanyName)
	})

	t.Run("Email must pass the strict mailbox check", func(t *testing.T) {
		h, principal := setup(t)

		_, err := h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{Email: str("a@b.c")})
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, "")
		assert.Contains(t, appErr.Fields["email"], "Wrong Email Type")

		stored, err := h.store.FindByID(ctx, principal.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", stored.Email)
	})

	t.Run("Empty request is a no-op", func(t *testing.T) {
		h, principal := setup(t)

		got, err := h.svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{})
		require.NoError(t, err)
		assert.Equal(t, principal.Account, got)
	})

	t.Run("Store rejects a racing duplicate", func(t *testing.T) {
		store := new(mocks.MockCredentialStore)
		store.On("ExistsByUserNameExcluding", mock.Anything, "taken", "id-1").Return(false, nil)
		store.On("UpdateByID", mock.Anything, "id-1", mock.Anything).Return(nil, repository.ErrDuplicateUserName).Once()
		svc := NewAccountService(Deps{Store: store, Rules: validation.NewRuleSet(store, validation.Options{})})

		principal := &models.Principal{Account: &models.Account{ID: "id-1"}}
		_, err := svc.UpdateUser(ctx, principal, models.UpdateAccountRequest{UserName: str("taken")})
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity, apperror.MsgValidationFailed)
		assert.NotEmpty(t, appErr.Fields["userName"])
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
	require.NoError(t, err)

	principal, err := h.svc.Authenticate(ctx, res.Authorization.Token)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, principal))

	_, err = h.svc.Authenticate(ctx, res.Authorization.Token)
	requireAppError(t, err, http.StatusUnauthorized, apperror.MsgUnauthenticated)

	_, err = h.svc.Refresh(ctx, res.Authorization.Token)
	requireAppError(t, err, http.StatusUnauthorized, "")

	t.Run("Other sessions survive", func(t *testing.T) {
		again, err := h.svc.Login(ctx, models.LoginRequest{Email: "a@b.com", Password: "password1"})
		require.NoError(t, err)
		_, err = h.svc.Authenticate(ctx, again.Authorization.Token)
		assert.NoError(t, err)
	})

	t.Run("Registry failure is a server error", func(t *testing.T) {
		tokens := new(mocks.MockTokenService)
		tokens.On("Blacklist", mock.Anything, &principal.Claims).Return(errors.New("redis down")).Once()
		svc := NewAccountService(Deps{Tokens: tokens})

		err := svc.Logout(ctx, principal)
		requireAppError(t, err, http.StatusInternalServerError, apperror.MsgInternal)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res, err := h.svc.Register(ctx, registration("a@b.com", "ab12345678"))
	require.NoError(t, err)

	refreshed, err := h.svc.Refresh(ctx, res.Authorization.Token)
	require.NoError(t, err)
	assert.NotEqual(t, res.Authorization.Token, refreshed.Authorization.Token)
	assert.Equal(t, res.Account.ID, refreshed.Account.ID)
	assert.Equal(t, int64(3600), refreshed.Authorization.ExpiresIn)

	_, err = h.svc.Authenticate(ctx, refreshed.Authorization.Token)
	assert.NoError(t, err)

	_, err = h.svc.Authenticate(ctx, res.Authorization.Token)
	requireAppError(t, err, http.StatusUnauthorized, "")

	_, err = h.svc.Refresh(ctx, res.Authorization.Token)
	requireAppError(t, err, http.StatusUnauthorized, "")

	_, err = h.svc.Refresh(ctx, "")
	requireAppError(t, err, http.StatusUnauthorized, "")
}
