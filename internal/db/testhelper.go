package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a migrated write pool on a file in t.TempDir() and closes
// it when the test ends.
func OpenTestSQLite(t *testing.T) *sql.DB {
	t.Helper()

	writeDB, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), ModeWrite, 0)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = writeDB.Close() })

	if err := Migrate(writeDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return writeDB
}
