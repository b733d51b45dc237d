package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"account-api/internal/config"
	"account-api/internal/core"
	"account-api/internal/database"
	"account-api/internal/hashing"
	"account-api/internal/metrics"
	"account-api/internal/repository"
	"account-api/internal/router"
	"account-api/internal/service"
	"account-api/internal/storage"
	"account-api/internal/telemetry"
	"account-api/internal/token"
	"account-api/internal/validation"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Version information (set during build)
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	logger := initLogger()

	logger.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Str("git_commit", gitCommit).
		Str("go_version", runtime.Version()).
		Str("os", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Msg("Starting account API")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration validation failed")
	}

	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Background workers stop when this is cancelled during shutdown.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &config.Application{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics.NewMetrics(registry),
	}

	if cfg.OtelEnabled {
		tp, err := telemetry.InitTracerProvider(ctx, cfg.OtelExporterEndpoint, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
		}
		app.TracerProvider = tp
	}

	// --- Credential store ---
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		app.DB = connectDatabase(ctx, cfg, logger)
		if err := database.RunMigrations(ctx, app.DB); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
		database.StartConnectionMonitoring(ctx, app.DB, app.Metrics)
		app.Store = repository.NewAccountStore(app.DB)
	default:
		logger.Warn().Msg("Using in-memory credential store; accounts are lost on restart")
		app.Store = repository.NewMemoryAccountStore()
	}

	// --- Token revocation ---
	var revocations core.RevocationRegistry
	switch cfg.RevocationDriver {
	case config.DriverRedis:
		app.Redis = connectRedis(ctx, cfg, logger)
		revocations = token.NewRedisRevocationRegistry(app.Redis)
	default:
		memory := token.NewMemoryRevocationRegistry()
		memory.StartCleanup(ctx, 5*time.Minute, logger)
		revocations = memory
	}

	logos, err := newLogoStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize logo storage")
	}

	hasher := hashing.NewBcryptHasher(cfg.BcryptCost)
	app.Accounts = service.NewAccountService(service.Deps{
		Store:   app.Store,
		Hasher:  hasher,
		Tokens:  token.NewJWTService(cfg.App_Secret, cfg.TokenTTL(), cfg.RefreshTTL(), revocations),
		Logos:   logos,
		Rules:   validation.NewRuleSet(app.Store, validation.Options{StrictAreaPhone: cfg.StrictAreaPhone}),
		Metrics: app.Metrics,
		Logger:  logger.With().Str("component", "accounts").Logger(),
	})

	database.SeedDefaultAccount(ctx, app, hasher)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.Setup(app),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.GetRequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.Port).
			Str("env", cfg.App_Env).
			Str("store", cfg.StoreDriver).
			Str("revocation", cfg.RevocationDriver).
			Str("logos", cfg.LogoStorage).
			Msg("Starting HTTP server")

		serverErrors <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	case sig := <-quit:
		logger.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal, starting graceful shutdown...")

		stop()
		gracefulShutdown(srv, app, logger)
	}

	logger.Info().Msg("Server stopped gracefully")
}

// initLogger initializes the global logger
func initLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return log.With().
		Timestamp().
		Caller().
		Logger()
}

// connectDatabase opens the pgx pool, retrying with linear backoff.
func connectDatabase(ctx context.Context, cfg config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig := database.DefaultPoolConfig()
	poolConfig.MaxConns = cfg.DbMaxConns
	poolConfig.MinConns = cfg.DbMinConns

	var lastErr error
	for attempts := 0; attempts < 5; attempts++ {
		db, err := database.Connect(ctx, cfg.DatabaseURL, poolConfig)
		if err == nil {
			return db
		}
		lastErr = err
		logger.Warn().
			Err(err).
			Int("attempt", attempts+1).
			Msg("Database connection failed, retrying...")
		time.Sleep(time.Duration(attempts+1) * 2 * time.Second)
	}
	logger.Fatal().Err(lastErr).Msg("Database connection failed after all retries")
	return nil
}

// connectRedis builds a traced client and waits until it answers PING.
func connectRedis(ctx context.Context, cfg config.Config, logger zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           0,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	client.AddHook(redisotel.NewTracingHook())

	var lastErr error
	for attempts := 0; attempts < 5; attempts++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		cancel()
		if err == nil {
			logger.Info().Str("addr", cfg.RedisAddr()).Msg("Redis client initialized")
			return client
		}
		lastErr = err
		logger.Warn().
			Err(err).
			Int("attempt", attempts+1).
			Msg("Redis connection failed, retrying...")
		time.Sleep(time.Duration(attempts+1) * 2 * time.Second)
	}
	logger.Fatal().Err(lastErr).Msg("Redis connection failed after all retries")
	return nil
}

func newLogoStorage(ctx context.Context, cfg config.Config) (core.LogoStorage, error) {
	if cfg.LogoStorage == config.LogoStorageS3 {
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	}
	return storage.NewLocalStorage(cfg.LogoPublicDir)
}

// gracefulShutdown handles the graceful shutdown process
func gracefulShutdown(srv *http.Server, app *config.Application, logger zerolog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv.SetKeepAlivesEnabled(false)

	logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := telemetry.Shutdown(shutdownCtx, app.TracerProvider); err != nil {
		logger.Error().Err(err).Msg("TracerProvider shutdown error")
	}

	if app.DB != nil {
		logger.Info().Msg("Closing database connections...")
		app.DB.Close()
	}

	if app.Redis != nil {
		logger.Info().Msg("Closing Redis connections...")
		if err := app.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("Redis shutdown error")
		}
	}

	logger.Info().Msg("Graceful shutdown completed")
}
