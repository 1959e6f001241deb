package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/pinewilt/kgcurate/backend/pkg/leaselock"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Migrate applies every pending migration from sourceURL
// (e.g. "file://migrations") to databaseURL.
func Migrate(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		logger.Info("[Store][Migrate] schema ready", "version", version, "dirty", dirty)
	}
	return nil
}

// Connect opens a pool with pgvector types registered on every connection.
// vector registration failures are ignored when the extension is missing.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		if err := pgxvec.RegisterTypes(ctx, conn); err != nil {
			logger.Debug("[Store][Connect] pgvector types not registered", "err", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Open connects to databaseURL and returns a storage whose Close releases
// the pool.
func Open(ctx context.Context, databaseURL string) (*GraphDBStorage, *pgxpool.Pool, error) {
	pool, err := Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	s := NewGraphDBStorageWithConnection(pool, leaselock.New(pool), WithCloser(pool.Close))
	return s, pool, nil
}
