package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Backend is an opened persistence adapter plus where its audit trail goes.
type Backend struct {
	Executor    guard.Executor
	Pool        *pgxpool.Pool
	AuditWriter audit.Writer
}

// Close releases the pool, if any.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// Options selects and configures a backend.
type Options struct {
	Driver         string
	DatabaseURL    string
	MigrationsPath string
}

// Open connects the configured backend. "memory" needs nothing else;
// "postgres" connects, pings and applies migrations.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Backend, error) {
	if opts.Driver == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
		return &Backend{Executor: NewMemoryExecutor(), AuditWriter: &AuditLog{}}, nil
	}

	if opts.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	pool, err := pgxpool.New(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")

	if opts.MigrationsPath != "" {
		if err := Migrate(ctx, pool, opts.MigrationsPath, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Backend{
		Executor:    NewPGExecutor(pool),
		Pool:        pool,
		AuditWriter: NewAuditStore(pool),
	}, nil
}
