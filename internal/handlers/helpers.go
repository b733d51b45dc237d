package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"account-api/internal/apperror"
	"account-api/internal/config"
	"account-api/internal/models"
	"account-api/internal/validation"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 8 << 20

	// One byte past the limit so the size rule can see oversized logos.
	maxLogoRead = validation.MaxLogoKilobytes*1024 + 1
)

var errBadRequest = errors.New("invalid request format")

// --- Helper Functions ---

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(config.RequestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}

func principalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(config.PrincipalKey).(*models.Principal)
	return p, ok && p != nil
}

func writeJSON(w http.ResponseWriter, app *config.Application, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func writeSuccess(w http.ResponseWriter, app *config.Application, env models.Envelope) {
	env.Status = "success"
	writeJSON(w, app, http.StatusOK, env)
}

func writeError(w http.ResponseWriter, r *http.Request, app *config.Application, status int, message string) {
	writeJSON(w, app, status, models.Envelope{
		Status:    "error",
		Message:   message,
		RequestID: getRequestID(r.Context()),
	})
}

// writeAppError renders any service error as the error envelope. Causes are logged, never sent.
func writeAppError(w http.ResponseWriter, r *http.Request, app *config.Application, err error) {
	appErr := apperror.As(err)
	status := appErr.Status()
	requestID := getRequestID(r.Context())

	event := app.Logger.Warn()
	if status >= http.StatusInternalServerError {
		event = app.Logger.Error()
	}
	event.Str("request_id", requestID).
		Str("kind", appErr.Kind.String()).
		Err(appErr.Err).
		Msg(appErr.Message)

	writeJSON(w, app, status, models.Envelope{
		Status:    "error",
		Message:   appErr.Message,
		Errors:    appErr.Fields,
		RequestID: requestID,
	})
}

// --- Request decoding ---

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func isForm(r *http.Request) bool {
	mt := mediaType(r)
	return mt == "multipart/form-data" || mt == "application/x-www-form-urlencoded"
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// parseForm handles both urlencoded and multipart bodies.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, *multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if mediaType(r) == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return url.Values(r.MultipartForm.Value), r.MultipartForm, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return r.PostForm, nil, nil
}

// formField returns nil when key was not submitted at all.
func formField(values url.Values, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

func readLogo(form *multipart.Form, field string) (*models.LogoUpload, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, nil
	}
	header := form.File[field][0]

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errBadRequest, field, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxLogoRead))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errBadRequest, field, err)
	}

	return &models.LogoUpload{
		Field:        field,
		OriginalName: header.Filename,
		Size:         header.Size,
		Content:      content,
	}, nil
}

func decodeRegister(w http.ResponseWriter, r *http.Request) (models.RegisterRequest, error) {
	var req models.RegisterRequest
	if !isForm(r) {
		return req, decodeJSON(w, r, &req)
	}

	values, form, err := parseForm(w, r)
	if err != nil {
		return req, err
	}
	req.Email = values.Get("email")
	req.Password = values.Get("password")
	req.PasswordConfirmation = values.Get("password_confirmation")
	req.FullName = values.Get("fullName")
	req.UserName = values.Get("userName")
	req.CompanyName = values.Get("companyName")
	req.PhoneNumber = values.Get("phoneNumber")
	req.Role = values.Get("role")
	req.Comments = formField(values, "comments")

	if req.UserLogo, err = readLogo(form, "userLogo"); err != nil {
		return req, err
	}
	if req.CompanyLogo, err = readLogo(form, "companyLogo"); err != nil {
		return req, err
	}
	return req, nil
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (models.LoginRequest, error) {
	var req models.LoginRequest
	if !isForm(r) {
		return req, decodeJSON(w, r, &req)
	}
	values, _, err := parseForm(w, r)
	if err != nil {
		return req, err
	}
	req.Email = values.Get("email")
	req.Password = values.Get("password")
	return req, nil
}

func decodeUpdate(w http.ResponseWriter, r *http.Request) (models.UpdateAccountRequest, error) {
	var req models.UpdateAccountRequest
	if !isForm(r) {
		return req, decodeJSON(w, r, &req)
	}
	values, _, err := parseForm(w, r)
	if err != nil {
		return req, err
	}
	req.Email = formField(values, "email")
	req.FullName = formField(values, "fullName")
	req.UserName = formField(values, "userName")
	req.CompanyName = formField(values, "companyName")
	req.PhoneNumber = formField(values, "phoneNumber")
	req.Role = formField(values, "role")
	req.Comments = formField(values, "comments")
	return req, nil
}
