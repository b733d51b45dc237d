package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"account-api/internal/database/migrations"
	"account-api/internal/metrics"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

// PoolConfig sizes the pgx pool backing the credential store.
type PoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxConns:          30,
		MinConns:          5,
		MaxConnLifetime:   60 * time.Minute,
		MaxConnIdleTime:   15 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

// Connect opens a traced pool and verifies it with a ping before returning.
func Connect(ctx context.Context, dsn string, pc *PoolConfig) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	cfg.ConnConfig.RuntimeParams["application_name"] = "account-api"
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"

	cfg.MaxConns, cfg.MinConns = pc.MaxConns, pc.MinConns
	cfg.MaxConnLifetime, cfg.MaxConnIdleTime = pc.MaxConnLifetime, pc.MaxConnIdleTime
	cfg.HealthCheckPeriod = pc.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	log.Info().
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("Account store pool ready")

	return pool, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations through a database/sql view of the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return migrate(ctx, db)
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Info().Msg("Database migrations applied")
	return nil
}

// StartConnectionMonitoring publishes pool gauges every 30s until ctx is done.
// A fully acquired pool is logged so slow queries show up before requests time out.
func StartConnectionMonitoring(ctx context.Context, db *pgxpool.Pool, m *metrics.Metrics) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			stat := db.Stat()
			m.SetPoolStats(stat.TotalConns(), stat.AcquiredConns(), stat.IdleConns())

			if stat.AcquiredConns() >= stat.MaxConns() {
				log.Warn().
					Int32("acquired", stat.AcquiredConns()).
					Int32("max", stat.MaxConns()).
					Int64("empty_acquires", stat.EmptyAcquireCount()).
					Msg("Account store pool saturated")
			}
		}
	}()
}

// HealthCheck pings the pool and confirms the accounts table is migrated.
func HealthCheck(ctx context.Context, db *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var migrated bool
	if err := db.QueryRow(ctx, "SELECT to_regclass('public.accounts') IS NOT NULL").Scan(&migrated); err != nil {
		return fmt.Errorf("lookup accounts table: %w", err)
	}
	if !migrated {
		return errors.New("accounts table missing, migrations not applied")
	}

	return nil
}

// PoolStats is the JSON view of the credential store's connection pool.
type PoolStats struct {
	Driver            string `json:"driver"`
	Total             int32  `json:"total_connections,omitempty"`
	Acquired          int32  `json:"acquired_connections,omitempty"`
	Idle              int32  `json:"idle_connections,omitempty"`
	Max               int32  `json:"max_connections,omitempty"`
	Acquires          int64  `json:"acquire_count,omitempty"`
	AcquireMillis     int64  `json:"acquire_duration_ms,omitempty"`
	CanceledAcquires  int64  `json:"canceled_acquire_count,omitempty"`
	EmptyAcquires     int64  `json:"empty_acquire_count,omitempty"`
	LifetimeDestroyed int64  `json:"max_lifetime_destroy_count,omitempty"`
	IdleDestroyed     int64  `json:"max_idle_destroy_count,omitempty"`
}

// Stats snapshots db. A nil pool yields only the driver name.
func Stats(driver string, db *pgxpool.Pool) PoolStats {
	ps := PoolStats{Driver: driver}
	if db == nil {
		return ps
	}

	stat := db.Stat()
	ps.Total = stat.TotalConns()
	ps.Acquired = stat.AcquiredConns()
	ps.Idle = stat.IdleConns()
	ps.Max = stat.MaxConns()
	ps.Acquires = stat.AcquireCount()
	ps.AcquireMillis = stat.AcquireDuration().Milliseconds()
	ps.CanceledAcquires = stat.CanceledAcquireCount()
	ps.EmptyAcquires = stat.EmptyAcquireCount()
	ps.LifetimeDestroyed = stat.MaxLifetimeDestroyCount()
	ps.IdleDestroyed = stat.MaxIdleDestroyCount()
	return ps
}
