package testutil

import (
	"testing"

	"garage-go/internal/database"
	"garage-go/internal/garage"
)

// NewTestDatabase creates a migrated in-memory SQLite database using clock
// for its timestamps. The database is closed when the test completes.
func NewTestDatabase(t *testing.T, clock garage.Clock) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
