package handlers

import (
	"context"
	"net/http"
	"time"

	"account-api/internal/apperror"
	"account-api/internal/database"
	"account-api/internal/models"
)

const (
	statusDisabled = "disabled"
	version        = "1.0.0"
)

func (h *Handlers) pingDB(ctx context.Context) (string, time.Duration, error) {
	if h.app.DB == nil {
		return statusDisabled, 0, nil
	}
	start := time.Now()
	if err := h.app.DB.Ping(ctx); err != nil {
		return "disconnected", 0, err
	}
	return "connected", time.Since(start), nil
}

func (h *Handlers) pingRedis(ctx context.Context) (string, time.Duration, error) {
	if h.app.Redis == nil {
		return statusDisabled, 0, nil
	}
	start := time.Now()
	if _, err := h.app.Redis.Ping(ctx).Result(); err != nil {
		return "disconnected", 0, err
	}
	return "connected", time.Since(start), nil
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	healthCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus, dbLatency, err := h.pingDB(healthCtx)
	if err != nil {
		h.app.Logger.Error().
			Str("request_id", requestID).
			Err(err).
			Msg("Database health check failed")
	}

	redisStatus, redisLatency, err := h.pingRedis(healthCtx)
	if err != nil {
		h.app.Logger.Error().
			Str("request_id", requestID).
			Err(err).
			Msg("Redis health check failed")
	}

	health := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(startTime).String(),
		"version":     version,
		"environment": h.app.Config.App_Env,
		"request_id":  requestID,
		"services": map[string]interface{}{
			"database": map[string]interface{}{
				"status":  dbStatus,
				"latency": dbLatency.String(),
			},
			"redis": map[string]interface{}{
				"status":  redisStatus,
				"latency": redisLatency.String(),
			},
		},
	}

	if dbStatus == "disconnected" || redisStatus == "disconnected" {
		health["status"] = "degraded"
		writeJSON(w, h.app, http.StatusServiceUnavailable, models.Envelope{
			Status:    "error",
			Message:   "Service is degraded",
			Data:      health,
			RequestID: requestID,
		})
		return
	}

	writeSuccess(w, h.app, models.Envelope{Message: "Service is healthy", Data: health})
}

// HealthDetailed adds schema and pool information to the basic probe
func (h *Handlers) HealthDetailed(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	healthCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(startTime).String(),
		"version":     version,
		"environment": h.app.Config.App_Env,
		"request_id":  requestID,
		"drivers": map[string]string{
			"store":      h.app.Config.StoreDriver,
			"revocation": h.app.Config.RevocationDriver,
			"logos":      h.app.Config.LogoStorage,
		},
	}

	dbHealth := make(map[string]interface{})
	if h.app.DB == nil {
		dbHealth["status"] = statusDisabled
	} else {
		dbStart := time.Now()
		if err := database.HealthCheck(healthCtx, h.app.DB); err != nil {
			dbHealth["status"] = "unhealthy"
			dbHealth["error"] = err.Error()
			health["status"] = "degraded"
		} else {
			dbHealth["status"] = "healthy"
			dbHealth["latency"] = time.Since(dbStart).String()
			dbHealth["stats"] = database.Stats(h.app.Config.StoreDriver, h.app.DB)
		}
	}
	health["database"] = dbHealth

	redisHealth := make(map[string]interface{})
	status, latency, err := h.pingRedis(healthCtx)
	switch {
	case err != nil:
		redisHealth["status"] = "unhealthy"
		redisHealth["error"] = err.Error()
		health["status"] = "degraded"
	case status == statusDisabled:
		redisHealth["status"] = statusDisabled
	default:
		redisHealth["status"] = "healthy"
		redisHealth["latency"] = latency.String()
	}
	health["redis"] = redisHealth

	if health["status"] == "degraded" {
		writeJSON(w, h.app, http.StatusServiceUnavailable, models.Envelope{
			Status:    "error",
			Message:   "Detailed health check complete",
			Data:      health,
			RequestID: requestID,
		})
		return
	}

	writeSuccess(w, h.app, models.Envelope{Message: "Detailed health check complete", Data: health})
}

// GetDatabaseStats returns connection pool stats. Admin only.
func (h *Handlers) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok || principal.Account == nil || principal.Account.Role != models.RoleAdmin {
		writeAppError(w, r, h.app, apperror.Forbidden("Forbidden."))
		return
	}

	writeSuccess(w, h.app, models.Envelope{
		Message: "Database statistics retrieved",
		Data:    database.Stats(h.app.Config.StoreDriver, h.app.DB),
	})
}
