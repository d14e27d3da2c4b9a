// Package database opens the bun handle used by the bun-backed repositories
// and owns the embedded schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrDriverUnknown = errors.New("database: unknown driver")
	ErrDSNRequired   = errors.New("database: dsn is required")
)

// Config selects the driver and connection string.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// Migrate applies the embedded migrations after connecting.
	Migrate bool
}

// Dialect reports the canonical driver name for cfg.Driver.
func Dialect(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrDriverUnknown, driver)
	}
}

// Open connects to the configured database, pings it and optionally runs the
// embedded migrations.
func Open(ctx context.Context, cfg Config, logger interfaces.Logger) (*bun.DB, error) {
	if logger == nil {
		logger = logging.NoOp()
	}
	driver, err := Dialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrDSNRequired
	}

	var db *bun.DB
	switch driver {
	case DriverPostgres:
		sqlDB, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("database: open postgres: %w", err)
		}
		db = bun.NewDB(sqlDB, pgdialect.New())
	default:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("database: open sqlite: %w", err)
		}
		db = bun.NewDB(sqlDB, sqlitedialect.New())
		// A single connection keeps in-memory databases shared and avoids
		// SQLITE_BUSY on concurrent writers.
		if cfg.MaxOpenConns <= 0 {
			cfg.MaxOpenConns = 1
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}

	if cfg.Migrate {
		if _, err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger.Info("database.open", "driver", driver, "migrate", cfg.Migrate)
	return db, nil
}

// DriverOf reports which driver db was opened with.
func DriverOf(db *bun.DB) string {
	if db != nil && db.Dialect().Name() == dialect.PG {
		return DriverPostgres
	}
	return DriverSQLite
}
