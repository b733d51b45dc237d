package handlers

import (
	"net/http"

	"account-api/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// GetUser handles GET /user
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())

	account, err := h.app.Accounts.GetUser(r.Context(), principal)
	if err != nil {
		writeAppError(w, r, h.app, err)
		return
	}

	writeSuccess(w, h.app, models.Envelope{User: account})
}

// UpdateUser handles PUT/PATCH /user
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("handlers").Start(r.Context(), "Handlers.UpdateUser")
	defer span.End()

	principal, ok := principalFrom(ctx)
	if ok {
		span.SetAttributes(attribute.String("account.id", principal.Account.ID))
	}

	req, err := decodeUpdate(w, r)
	if err != nil {
		h.app.Logger.Warn().
			Str("request_id", getRequestID(ctx)).
			Err(err).
			Msg("Invalid update payload")
		writeError(w, r, h.app, http.StatusBadRequest, "Invalid request format")
		return
	}

	account, err := h.app.Accounts.UpdateUser(ctx, principal, req)
	if err != nil {
		writeAppError(w, r, h.app, err)
		return
	}

	writeSuccess(w, h.app, models.Envelope{
		Message: "User updated successfully",
		User:    account,
	})
}
