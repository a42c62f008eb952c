// Package db owns the PostgreSQL connection pool and schema migrations for
// the API server.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roamledger/roamledger/config"
	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
)

// Connect builds a pgx connection pool from the database configuration and
// verifies it with a ping.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	log := logger.GetLogger()

	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.DatabaseError, "Invalid database configuration")
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLife != "" {
		lifetime, err := time.ParseDuration(cfg.ConnMaxLife)
		if err != nil {
			return nil, apperrors.ValidationFailed("Invalid CONN_MAX_LIFE duration", cfg.ConnMaxLife)
		}
		poolConfig.MaxConnLifetime = lifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.DatabaseError, "Failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Wrap(err, apperrors.DatabaseError, "Database is not reachable")
	}

	log.Infow("Connected to database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
		"maxConns", poolConfig.MaxConns)
	return pool, nil
}
