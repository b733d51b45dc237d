package handlers

import (
	"net/http"

	"account-api/internal/middleware"
	"account-api/internal/models"
)

// Register handles account registration (JSON or multipart with logos)
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())

	req, err := decodeRegister(w, r)
	if err != nil {
		h.app.Logger.Warn().
			Str("request_id", requestID).
			Err(err).
			Msg("Invalid registration payload")
		writeError(w, r, h.app, http.StatusBadRequest, "Invalid request format")
		return
	}

	res, err := h.app.Accounts.Register(r.Context(), req)
	if err != nil {
		writeAppError(w, r, h.app, err)
		return
	}

	h.app.Logger.Info().
		Str("request_id", requestID).
		Str("account_id", res.Account.ID).
		Msg("User registered successfully")

	writeSuccess(w, h.app, models.Envelope{
		Message:       "User created successfully",
		User:          res.Account,
		Authorization: res.Authorization,
	})
}

// Login exchanges credentials for a bearer token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())

	req, err := decodeLogin(w, r)
	if err != nil {
		h.app.Logger.Warn().
			Str("request_id", requestID).
			Err(err).
			Msg("Invalid login payload")
		writeError(w, r, h.app, http.StatusBadRequest, "Invalid request format")
		return
	}

	res, err := h.app.Accounts.Login(r.Context(), req)
	if err != nil {
		writeAppError(w, r, h.app, err)
		return
	}

	h.app.Logger.Info().
		Str("request_id", requestID).
		Str("account_id", res.Account.ID).
		Msg("User authenticated successfully")

	writeSuccess(w, h.app, models.Envelope{
		User:          res.Account,
		Authorization: res.Authorization,
	})
}

// Logout revokes the bearer token of the current principal
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())

	if err := h.app.Accounts.Logout(r.Context(), principal); err != nil {
		writeAppError(w, r, h.app, err)
		return
	}

	writeSuccess(w, h.app, models.Envelope{Message: "Successfully logged out"})
}

// Refresh swaps the presented token for a new one. The old token may already be expired,
// so this route reads the header itself instead of going through the auth middleware.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.app.Accounts.Refresh(r.Context(), middleware.BearerToken(r))
	if err != nil {
		writeAppError(w, r, h.app, err)
		return
	}

	writeSuccess(w, h.app, models.Envelope{
		User:          res.Account,
		Authorization: res.Authorization,
	})
}
