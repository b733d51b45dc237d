package router

import (
	"net/http"

	"account-api/internal/config"
	"account-api/internal/handlers"
	"account-api/internal/middleware"
	"account-api/internal/telemetry"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

func Setup(app *config.Application) http.Handler {
	router := mux.NewRouter()

	h := handlers.New(app)
	mw := middleware.New(app)

	// Apply global middleware in order of execution
	router.Use(mw.RequestID)
	router.Use(otelmux.Middleware(telemetry.ServiceName))
	router.Use(mw.Recovery)
	router.Use(mw.Logging)
	router.Use(middleware.Security)
	router.Use(mw.Timeout(app.Config.GetRequestTimeout()))

	c := cors.New(cors.Options{
		AllowedOrigins:   app.Config.CORS_Allowed_Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Health and monitoring routes (no authentication required)
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/health/detailed", h.HealthDetailed).Methods("GET")
	if app.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Account routes are served both under /api and at the root.
	for _, sub := range []*mux.Router{router.PathPrefix("/api").Subrouter(), router} {
		sub.HandleFunc("/register", h.Register).Methods("POST")
		sub.HandleFunc("/login", h.Login).Methods("POST")
		sub.HandleFunc("/refresh", h.Refresh).Methods("POST")

		authed := sub.NewRoute().Subrouter()
		authed.Use(mw.Authenticate)
		authed.HandleFunc("/user", h.GetUser).Methods("GET")
		authed.HandleFunc("/user", h.UpdateUser).Methods("PUT", "PATCH")
		authed.HandleFunc("/logout", h.Logout).Methods("POST")
	}

	admin := router.PathPrefix("/api/v1/admin").Subrouter()
	admin.Use(mw.Authenticate)
	admin.HandleFunc("/db-stats", h.GetDatabaseStats).Methods("GET")

	// CORS wraps the router so preflight requests never reach route matching.
	handler := c.Handler(router)
	if app.Metrics == nil {
		return handler
	}
	return promhttp.InstrumentHandlerDuration(app.Metrics.HTTPRequestDuration, handler)
}
