package service

import (
	"context"
	"errors"
	"time"

	"account-api/internal/apperror"
	"account-api/internal/core"
	"account-api/internal/metrics"
	"account-api/internal/models"
	"account-api/internal/repository"
	"account-api/internal/storage"
	"account-api/internal/token"
	"account-api/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("account-api/service")

// Deps are the collaborators of AccountService. Metrics may be nil.
type Deps struct {
	Store   core.CredentialStore
	Hasher  core.PasswordHasher
	Tokens  core.TokenService
	Logos   core.LogoStorage
	Rules   *validation.RuleSet
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// AccountService is a stateless orchestrator; every call stands alone.
type AccountService struct {
	store   core.CredentialStore
	hasher  core.PasswordHasher
	tokens  core.TokenService
	logos   core.LogoStorage
	rules   *validation.RuleSet
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewAccountService(d Deps) *AccountService {
	return &AccountService{
		store:   d.Store,
		hasher:  d.Hasher,
		tokens:  d.Tokens,
		logos:   d.Logos,
		rules:   d.Rules,
		metrics: d.Metrics,
		logger:  d.Logger,
		now:     time.Now,
	}
}

var _ core.AccountService = (*AccountService)(nil)

// --- Auth ---

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (res *models.AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "AccountService.Register")
	defer func() { s.finish(span, "register", err) }()

	// Rules apply to the text that is stored, so sanitise first.
	req.FullName = validation.SanitizeString(req.FullName)
	req.CompanyName = validation.SanitizeString(req.CompanyName)
	req.Comments = sanitizeOptional(req.Comments)

	failures, err := s.rules.ValidateRegistration(ctx, req)
	if err != nil {
		return nil, apperror.Persistence("validate registration", err)
	}
	if appErr := validation.Classify(validation.ModeRegistration, failures); appErr != nil {
		return nil, appErr
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperror.Persistence("hash password", err)
	}

	now := s.now().UTC()
	account := &models.Account{
		ID:             uuid.New().String(),
		Email:          req.Email,
		PasswordDigest: digest,
		FullName:       req.FullName,
		UserName:       req.UserName,
		CompanyName:    req.CompanyName,
		PhoneNumber:    req.PhoneNumber,
		Role:           models.Role(req.Role),
		Comments:       req.Comments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Logos written here are removed again if the account is never created.
	var stored []string
	defer func() {
		if err != nil {
			s.discardLogos(ctx, stored)
		}
	}()

	if req.UserLogo != nil {
		name, path, err := s.storeLogo(ctx, now, models.LogoPurposeUser, req.UserLogo)
		if err != nil {
			return nil, err
		}
		stored = append(stored, path)
		account.UserLogo, account.UserLogoPath = &name, &path
	}
	if req.CompanyLogo != nil {
		name, path, err := s.storeLogo(ctx, now, models.LogoPurposeCompany, req.CompanyLogo)
		if err != nil {
			return nil, err
		}
		stored = append(stored, path)
		account.CompanyLogo, account.CompanyLogoPath = &name, &path
	}

	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateUserName) {
			return nil, apperror.Duplicate(err)
		}
		return nil, apperror.Persistence("create account", err)
	}
	stored = nil

	issued, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, apperror.Persistence("issue token", err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	s.logger.Info().Str("account_id", account.ID).Msg("Account registered")

	return &models.AuthResult{Account: account, Authorization: models.NewAuthorization(issued)}, nil
}

func (s *AccountService) storeLogo(ctx context.Context, now time.Time, purpose models.LogoPurpose, upload *models.LogoUpload) (string, string, error) {
	name := storage.LogoFileName(now, purpose, validation.LogoExtension(upload.OriginalName))
	path, err := s.logos.Store(ctx, upload.Content, storage.NamespaceFor(purpose), name, validation.ContentType(upload.Content))
	if err != nil {
		return "", "", apperror.Upload(upload.Field, err)
	}
	return name, path, nil
}

// discardLogos is best effort: a leftover file is logged, never surfaced to the caller.
func (s *AccountService) discardLogos(ctx context.Context, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for _, path := range paths {
		if err := s.logos.Delete(ctx, path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove orphaned logo")
		}
	}
}

// Login never tells an unknown email apart from a wrong password.
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (res *models.AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "AccountService.Login")
	defer func() { s.finish(span, "login", err) }()

	failures, err := s.rules.ValidateLogin(ctx, req)
	if err != nil {
		return nil, apperror.Persistence("validate login", err)
	}
	if appErr := validation.Classify(validation.ModeLogin, failures); appErr != nil {
		return nil, appErr
	}

	account, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Unauthenticated(apperror.MsgInvalidCredentials, err)
		}
		return nil, apperror.Persistence("find account", err)
	}
	if !s.hasher.Verify(req.Password, account.PasswordDigest) {
		return nil, apperror.Unauthenticated(apperror.MsgInvalidCredentials, nil)
	}

	issued, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, apperror.Persistence("issue token", err)
	}

	return &models.AuthResult{Account: account, Authorization: models.NewAuthorization(issued)}, nil
}

// Authenticate resolves a bearer token into a principal holding the current account snapshot.
func (s *AccountService) Authenticate(ctx context.Context, rawToken string) (*models.Principal, error) {
	if rawToken == "" {
		return nil, apperror.Unauthenticated("", nil)
	}

	claims, err := s.tokens.Verify(ctx, rawToken)
	if err != nil {
		return nil, tokenError("verify token", err)
	}

	account, err := s.loadSubject(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return &models.Principal{Account: account, Token: rawToken, Claims: *claims}, nil
}

// Logout revokes the principal's token server-side.
func (s *AccountService) Logout(ctx context.Context, principal *models.Principal) (err error) {
	defer func() { s.metrics.RecordEvent("logout", err) }()

	if principal == nil {
		return apperror.Unauthenticated("", nil)
	}
	if err := s.tokens.Blacklist(ctx, &principal.Claims); err != nil {
		return tokenError("blacklist token", err)
	}
	s.metrics.RecordRevocation()
	return nil
}

// Refresh swaps a refreshable token (possibly expired) for a new one.
func (s *AccountService) Refresh(ctx context.Context, rawToken string) (res *models.AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "AccountService.Refresh")
	defer func() { s.finish(span, "refresh", err) }()

	if rawToken == "" {
		return nil, apperror.Unauthenticated("", nil)
	}

	issued, err := s.tokens.Refresh(ctx, rawToken)
	if err != nil {
		return nil, tokenError("refresh token", err)
	}
	s.metrics.RecordRevocation()

	account, err := s.loadSubject(ctx, issued.Claims.Subject)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{Account: account, Authorization: models.NewAuthorization(issued)}, nil
}

// --- Profile ---

func (s *AccountService) GetUser(_ context.Context, principal *models.Principal) (*models.Account, error) {
	if principal == nil || principal.Account == nil {
		return nil, apperror.Unauthenticated("", nil)
	}
	return principal.Account, nil
}

// UpdateUser persists a partial update and returns the account snapshot the principal
// was authenticated with, not the freshly written row.
func (s *AccountService) UpdateUser(ctx context.Context, principal *models.Principal, req models.UpdateAccountRequest) (_ *models.Account, err error) {
	ctx, span := tracer.Start(ctx, "AccountService.UpdateUser")
	defer func() { s.finish(span, "update", err) }()

	if principal == nil || principal.Account == nil {
		return nil, apperror.Unauthenticated("", nil)
	}
	self := principal.Account.ID

	req.FullName = sanitizeOptional(req.FullName)
	req.CompanyName = sanitizeOptional(req.CompanyName)
	req.Comments = sanitizeOptional(req.Comments)

	failures, err := s.rules.ValidateUpdate(ctx, req, self)
	if err != nil {
		return nil, apperror.Persistence("validate update", err)
	}
	if appErr := validation.Classify(validation.ModeUpdate, failures); appErr != nil {
		return nil, appErr
	}

	patch := req.Patch()

	if !patch.Empty() {
		_, err = s.store.UpdateByID(ctx, self, patch)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperror.Validation(apperror.MsgValidationFailed, map[string][]string{"email": {"The email has already been taken."}})
		case errors.Is(err, repository.ErrDuplicateUserName):
			return nil, apperror.Validation(apperror.MsgValidationFailed, map[string][]string{"userName": {"The user name has already been taken."}})
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.Unauthenticated("", err)
		default:
			return nil, apperror.Persistence("update account", err)
		}
	}

	return principal.Account, nil
}

// --- helpers ---

func (s *AccountService) loadSubject(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Unauthenticated("", err)
		}
		return nil, apperror.Persistence("load account", err)
	}
	return account, nil
}

func (s *AccountService) finish(span trace.Span, event string, err error) {
	s.metrics.RecordEvent(event, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.As(err).Kind.String())
	}
	span.End()
}

// tokenError turns token rejections into 401s and anything else into a 500.
func tokenError(op string, err error) error {
	if token.IsAuthError(err) {
		return apperror.Unauthenticated("", err)
	}
	return apperror.Persistence(op, err)
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := validation.SanitizeString(*s)
	return &v
}
