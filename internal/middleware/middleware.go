package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"account-api/internal/apperror"
	"account-api/internal/config"
	"account-api/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type Middleware struct {
	app *config.Application
}

func New(app *config.Application) *Middleware {
	return &Middleware{app: app}
}

// statusRecorder captures what the handler wrote for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// RequestID reuses an inbound X-Request-ID or mints one, and echoes it back.
func (mw *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), config.RequestIDKey, id)))
	})
}

// Logging writes one access line per request: 5xx at error, 4xx at warn.
func (mw *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		var event *zerolog.Event
		switch {
		case rec.status >= http.StatusInternalServerError:
			event = mw.app.Logger.Error()
		case rec.status >= http.StatusBadRequest:
			event = mw.app.Logger.Warn()
		default:
			event = mw.app.Logger.Info()
		}

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		event.
			Str("request_id", getRequestID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Str("client_ip", getClientIP(r)).
			Msg("request completed")
	})
}

func (mw *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				id := getRequestID(r.Context())
				mw.app.Logger.Error().
					Str("request_id", id).
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				writeJSONError(w, http.StatusInternalServerError, apperror.MsgInternal, id)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves the bearer token into a principal and stores it under config.PrincipalKey.
func (mw *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r.Context())

		principal, err := mw.app.Accounts.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			appErr := apperror.As(err)
			event := mw.app.Logger.Warn()
			if appErr.Status() >= http.StatusInternalServerError {
				event = mw.app.Logger.Error()
			}
			event.
				Str("request_id", requestID).
				Err(appErr.Err).
				Msg("Bearer authentication failed")

			writeJSONError(w, appErr.Status(), appErr.Message, requestID)
			return
		}

		ctx := context.WithValue(r.Context(), config.PrincipalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>", or "" when absent.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Security sets response hardening headers. Responses are JSON only, so CSP denies everything.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Strict-Transport-Security": "max-age=63072000; includeSubDomains",
	"Referrer-Policy":           "no-referrer",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":             "no-store",
}

func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for name, value := range securityHeaders {
			h.Set(name, value)
		}
		h.Del("Server")

		next.ServeHTTP(w, r)
	})
}

// Timeout bounds handler time with http.TimeoutHandler and answers with a JSON envelope.
func (mw *Middleware) Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := getRequestID(r.Context())
			body, _ := json.Marshal(models.Envelope{
				Status:    "error",
				Message:   "Request timeout",
				RequestID: requestID,
			})

			// Handlers set their own content type; this one only survives on timeout.
			w.Header().Set("Content-Type", "application/json")
			http.TimeoutHandler(next, timeout, string(body)).ServeHTTP(w, r)
		})
	}
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(config.RequestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func getClientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.Envelope{
		Status:    "error",
		Message:   message,
		RequestID: requestID,
	})
}
