package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation(MsgValidationFailed, nil), http.StatusUnprocessableEntity},
		{"duplicate", Duplicate(nil), http.StatusConflict},
		{"authentication", Unauthenticated("", nil), http.StatusUnauthorized},
		{"forbidden", Forbidden("no"), http.StatusForbidden},
		{"upload", Upload("userLogo", errors.New("disk full")), http.StatusUnprocessableEntity},
		{"persistence", Persistence("create account", errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Status())
		})
	}
}

func TestUploadScopesFieldAndMessage(t *testing.T) {
	err := Upload("companyLogo", errors.New("s3 down"))

	assert.Equal(t, MsgInvalidFile, err.Message)
	assert.Equal(t, []string{MsgInvalidFile}, err.Fields["companyLogo"])
	assert.EqualError(t, errors.Unwrap(err), "s3 down")
}

func TestAsWrapsForeignErrors(t *testing.T) {
	raw := errors.New("connection reset")

	got := As(fmt.Errorf("insert: %w", raw))

	assert.Equal(t, KindPersistence, got.Kind)
	assert.Equal(t, MsgInternal, got.Message)
	assert.ErrorIs(t, got, raw)
	assert.Nil(t, As(nil))
}

func TestAsKeepsDomainErrors(t *testing.T) {
	dup := Duplicate(nil)

	got := As(fmt.Errorf("register: %w", dup))

	assert.Same(t, dup, got)
	assert.True(t, Is(got, KindDuplicate))
	assert.False(t, Is(got, KindValidation))
}

func TestUnauthenticatedDefaultMessage(t *testing.T) {
	assert.Equal(t, MsgUnauthenticated, Unauthenticated("", nil).Message)
	assert.Equal(t, MsgInvalidCredentials, Unauthenticated(MsgInvalidCredentials, nil).Message)
}
