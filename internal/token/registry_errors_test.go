package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"account-api/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newServiceWithRegistry(t *testing.T, registry *mocks.MockRevocationRegistry) (*JWTService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	svc := NewJWTService(testSecret, time.Hour, 14*24*time.Hour, registry)
	svc.now = clock.Now
	return svc, clock
}

func TestRegistryFailures(t *testing.T) {
	ctx := context.Background()
	outage := errors.New("redis: connection refused")

	t.Run("Verify lookup fails", func(t *testing.T) {
		registry := new(mocks.MockRevocationRegistry)
		svc, _ := newServiceWithRegistry(t, registry)
		issued, err := svc.Issue("account-1")
		require.NoError(t, err)

		registry.On("IsRevoked", mock.Anything, issued.Claims.TokenID).Return(false, outage).Once()

		_, err = svc.Verify(ctx, issued.Token)
		require.ErrorIs(t, err, outage)
		assert.False(t, IsAuthError(err))
		registry.AssertExpectations(t)
	})

	t.Run("Refresh cannot revoke the old token", func(t *testing.T) {
		registry := new(mocks.MockRevocationRegistry)
		svc, clock := newServiceWithRegistry(t, registry)
		issued, err := svc.Issue("account-1")
		require.NoError(t, err)
		clock.Advance(2 * time.Hour)

		registry.On("IsRevoked", mock.Anything, issued.Claims.TokenID).Return(false, nil).Once()
		registry.On("Revoke", mock.Anything, issued.Claims.TokenID, mock.Anything).Return(false, outage).Once()

		_, err = svc.Refresh(ctx, issued.Token)
		require.ErrorIs(t, err, outage)
		assert.False(t, IsAuthError(err))
		registry.AssertExpectations(t)
	})

	t.Run("Refresh loses the race to another refresh", func(t *testing.T) {
		registry := new(mocks.MockRevocationRegistry)
		svc, _ := newServiceWithRegistry(t, registry)
		issued, err := svc.Issue("account-1")
		require.NoError(t, err)

		registry.On("IsRevoked", mock.Anything, issued.Claims.TokenID).Return(false, nil).Once()
		registry.On("Revoke", mock.Anything, issued.Claims.TokenID, mock.Anything).Return(false, nil).Once()

		_, err = svc.Refresh(ctx, issued.Token)
		assert.ErrorIs(t, err, ErrRevoked)
		assert.True(t, IsAuthError(err))
	})

	t.Run("Blacklist revokes until the refresh deadline", func(t *testing.T) {
		registry := new(mocks.MockRevocationRegistry)
		svc, _ := newServiceWithRegistry(t, registry)
		issued, err := svc.Issue("account-1")
		require.NoError(t, err)

		deadline := issued.Claims.RefreshDeadline
		registry.On("Revoke", mock.Anything, issued.Claims.TokenID, mock.MatchedBy(func(until time.Time) bool {
			return until.Equal(deadline)
		})).Return(true, nil).Once()

		require.NoError(t, svc.Blacklist(ctx, &issued.Claims))
		registry.AssertExpectations(t)
	})

	t.Run("Blacklist registry outage", func(t *testing.T) {
		registry := new(mocks.MockRevocationRegistry)
		svc, _ := newServiceWithRegistry(t, registry)
		issued, err := svc.Issue("account-1")
		require.NoError(t, err)

		registry.On("Revoke", mock.Anything, issued.Claims.TokenID, mock.Anything).Return(false, outage).Once()

		err = svc.Blacklist(ctx, &issued.Claims)
		require.ErrorIs(t, err, outage)
		assert.False(t, IsAuthError(err))
	})
}
