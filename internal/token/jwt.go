// Package token issues, verifies, refreshes and revokes HS256 bearer tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-api/internal/core"
	"account-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const Issuer = "account-api"

var (
	ErrInvalid             = errors.New("token is invalid")
	ErrExpired             = errors.New("token has expired")
	ErrRevoked             = errors.New("token has been revoked")
	ErrRefreshWindowClosed = errors.New("token can no longer be refreshed")
)

// claims is the signed payload. RefreshDeadline (rfx) is fixed at first issue and
// carried unchanged through every refresh.
type claims struct {
	jwt.RegisteredClaims
	RefreshDeadline int64 `json:"rfx"`
}

// JWTService implements core.TokenService.
type JWTService struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	registry   core.RevocationRegistry
	now        func() time.Time
}

func NewJWTService(secret string, ttl, refreshTTL time.Duration, registry core.RevocationRegistry) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		ttl:        ttl,
		refreshTTL: refreshTTL,
		registry:   registry,
		now:        time.Now,
	}
}

// Issue signs a new token for subject with a fresh refresh window.
func (s *JWTService) Issue(subject string) (*models.IssuedToken, error) {
	return s.issue(subject, s.now().Add(s.refreshTTL))
}

func (s *JWTService) issue(subject string, refreshDeadline time.Time) (*models.IssuedToken, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		RefreshDeadline: refreshDeadline.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &models.IssuedToken{
		Token:     signed,
		Claims:    toModel(c),
		ExpiresIn: int64(s.ttl / time.Second),
	}, nil
}

// Verify checks signature, issuer, exp and nbf, then the revocation registry.
func (s *JWTService) Verify(ctx context.Context, raw string) (*models.Claims, error) {
	c, err := s.parse(raw, true)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, c.ID); err != nil {
		return nil, err
	}
	out := toModel(*c)
	return &out, nil
}

// Refresh accepts an expired but correctly signed token while its refresh window is
// open. The old token id is revoked exactly once, so a token refreshes at most once.
func (s *JWTService) Refresh(ctx context.Context, raw string) (*models.IssuedToken, error) {
	c, err := s.parse(raw, false)
	if err != nil {
		return nil, err
	}

	deadline := time.Unix(c.RefreshDeadline, 0)
	if c.RefreshDeadline == 0 || !s.now().Before(deadline) {
		return nil, ErrRefreshWindowClosed
	}
	if err := s.checkRevoked(ctx, c.ID); err != nil {
		return nil, err
	}

	revoked, err := s.registry.Revoke(ctx, c.ID, deadline)
	if err != nil {
		return nil, fmt.Errorf("revoke refreshed token: %w", err)
	}
	if !revoked {
		return nil, ErrRevoked
	}

	return s.issue(c.Subject, deadline)
}

// Blacklist revokes the token until its refresh window closes, so it can neither
// authorize nor be refreshed.
func (s *JWTService) Blacklist(ctx context.Context, c *models.Claims) error {
	if c == nil || c.TokenID == "" {
		return ErrInvalid
	}
	until := c.RefreshDeadline
	if until.Before(c.ExpiresAt) {
		until = c.ExpiresAt
	}
	if _, err := s.registry.Revoke(ctx, c.TokenID, until); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (s *JWTService) parse(raw string, validateTimes bool) (*claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	}
	if !validateTimes {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	c := &claims{}
	tok, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tok.Valid || c.Subject == "" || c.ID == "" {
		return nil, ErrInvalid
	}
	if !validateTimes && c.Issuer != Issuer {
		return nil, ErrInvalid
	}
	return c, nil
}

func (s *JWTService) checkRevoked(ctx context.Context, id string) error {
	revoked, err := s.registry.IsRevoked(ctx, id)
	if err != nil {
		return fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return ErrRevoked
	}
	return nil
}

func toModel(c claims) models.Claims {
	out := models.Claims{
		Subject:         c.Subject,
		TokenID:         c.ID,
		RefreshDeadline: time.Unix(c.RefreshDeadline, 0),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

// IsAuthError reports whether err is one of the token rejection sentinels rather than an
// infrastructure failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrRevoked) || errors.Is(err, ErrRefreshWindowClosed)
}
