package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgdriver "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/macrohuang/invest-log/internal/infrastructure/logx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	migratePingAttempts = 30
	migratePingInterval = 500 * time.Millisecond
)

// RunMigrations applies the embedded schema migrations, waiting for the
// database to accept connections first.
func RunMigrations(ctx context.Context, db *DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	sqldb, err := sql.Open("pgx", db.Pool.Config().ConnString())
	if err != nil {
		return fmt.Errorf("open migration conn: %w", err)
	}
	defer sqldb.Close()
	if err := waitForDB(ctx, sqldb); err != nil {
		return err
	}
	driver, err := pgdriver.WithInstance(sqldb, &pgdriver.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	if version, dirty, err := m.Version(); err == nil {
		logx.L().Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

// waitForDB pings until the database answers. Fresh containers take a moment
// to start accepting connections.
func waitForDB(ctx context.Context, sqldb *sql.DB) error {
	var err error
	for i := 0; i < migratePingAttempts; i++ {
		if err = sqldb.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping db: %w", ctx.Err())
		case <-time.After(migratePingInterval):
		}
	}
	return fmt.Errorf("ping db: %w", err)
}
