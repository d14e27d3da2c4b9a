package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const (
	migrationsTable      = "press_migrations"
	migrationsLocksTable = "press_migration_locks"
)

// MigrationsFS returns the embedded migrations for driver.
func MigrationsFS(driver string) (fs.FS, error) {
	name, err := Dialect(driver)
	if err != nil {
		return nil, err
	}
	return fs.Sub(migrationsFS, "migrations/"+name)
}

// Migrate applies pending migrations for the dialect of db and returns the
// names of the migrations it applied.
func Migrate(ctx context.Context, db *bun.DB) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("database: migrate: nil db")
	}
	source, err := MigrationsFS(DriverOf(db))
	if err != nil {
		return nil, err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(source); err != nil {
		return nil, fmt.Errorf("database: discover migrations: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrations,
		migrate.WithTableName(migrationsTable),
		migrate.WithLocksTableName(migrationsLocksTable),
	)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("database: init migrations: %w", err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return nil, fmt.Errorf("database: lock migrations: %w", err)
	}
	defer func() { _ = migrator.Unlock(ctx) }()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("database: migrate: %w", err)
	}
	if group == nil || group.IsZero() {
		return nil, nil
	}
	applied := make([]string, 0, len(group.Migrations))
	for _, m := range group.Migrations {
		applied = append(applied, m.Name)
	}
	return applied, nil
}
