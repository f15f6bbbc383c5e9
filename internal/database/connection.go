package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curalink/curalink/internal/config"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
	pingTimeout     = 2 * time.Second
)

// DB is the shared document-store handle. It is constructed once in main and
// injected into every repository.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// New wraps an existing pool. Integration tests use it with a container pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	return &DB{Pool: pool, logger: logger}
}

// NewConnection opens the pool and waits for the first successful ping,
// retrying with a doubling backoff while the server comes up.
func NewConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	db := &DB{Pool: pool, logger: logger}

	wait := connectBackoff
	for attempt := 1; ; attempt++ {
		err = db.Ping(context.Background())
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempt, err)
		}
		logger.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.Any("error", err))
		time.Sleep(wait)
		wait *= 2
	}

	logger.Info("database connection established",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
		slog.Int("max_conns", int(cfg.MaxConns)),
	)

	return db, nil
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.Pool.Close()
}

// Ping checks the pool within a short deadline. It backs the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
