// Package apperror holds the error taxonomy the account service hands to the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicate
	KindAuthentication
	KindForbidden
	KindUpload
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate_account"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindUpload:
		return "upload"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a fully resolved domain failure. Message is safe to show to clients; Err is not.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindUpload:
		return http.StatusUnprocessableEntity
	case KindDuplicate:
		return http.StatusConflict
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

const (
	MsgDuplicateAccount   = "User Already Registered!"
	MsgPasswordMismatch   = "Check your password"
	MsgWrongEmailType     = "Wrong Email Type"
	MsgValidationFailed   = "The given data was invalid."
	MsgInvalidCredentials = "Invalid credentials"
	MsgUnauthenticated    = "Unauthenticated."
	MsgInvalidFile        = "invalid file"
	MsgInternal           = "Internal server error"
)

func Validation(message string, fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Duplicate(err error) *Error {
	return &Error{Kind: KindDuplicate, Message: MsgDuplicateAccount, Err: err}
}

func Unauthenticated(message string, err error) *Error {
	if message == "" {
		message = MsgUnauthenticated
	}
	return &Error{Kind: KindAuthentication, Message: message, Err: err}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Upload scopes a file storage failure to the logo field it came from.
func Upload(field string, err error) *Error {
	return &Error{
		Kind:    KindUpload,
		Message: MsgInvalidFile,
		Fields:  map[string][]string{field: {MsgInvalidFile}},
		Err:     err,
	}
}

// Persistence wraps an unexpected storage, hashing or signing failure.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: MsgInternal, Err: fmt.Errorf("%s: %w", op, err)}
}

// As extracts an *Error from err, wrapping anything else as a persistence failure.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Persistence("unexpected", err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
