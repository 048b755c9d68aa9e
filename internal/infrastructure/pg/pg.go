package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	infraconfig "github.com/macrohuang/invest-log/internal/infrastructure/config"
)

const idleConnLifetime = 2 * time.Minute

// DB wraps the pgx pool shared by the repositories.
type DB struct{ Pool *pgxpool.Pool }

// Connect builds a pool from a postgres URL. It does not dial eagerly;
// RunMigrations pings until the database accepts connections.
func Connect(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = infraconfig.DefaultPGMaxConns
	cfg.MinConns = infraconfig.DefaultPGMinConns
	cfg.MaxConnIdleTime = idleConnLifetime
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() { d.Pool.Close() }

// Ping reports whether the database is reachable. The readiness probe uses it.
func (d *DB) Ping(ctx context.Context) error { return d.Pool.Ping(ctx) }
