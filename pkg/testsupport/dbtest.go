package testsupport

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-press/internal/database"
)

// NewBunDB returns a migrated bun handle over a private in-memory SQLite
// database, closed when the test finishes.
func NewBunDB(t testing.TB) *bun.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Driver:  database.DriverSQLite,
		DSN:     memoryDSN(),
		Migrate: true,
	}, nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func memoryDSN() string {
	return fmt.Sprintf("file:press_%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
}
