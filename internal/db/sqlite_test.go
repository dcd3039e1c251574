package db

import (
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	write := buildDSN("/tmp/meta.sqlite", ModeWrite)
	assert.True(t, strings.HasPrefix(write, "/tmp/meta.sqlite?"))
	assert.Contains(t, write, "_journal_mode=WAL")
	assert.Contains(t, write, "_busy_timeout=5000")
	assert.Contains(t, write, "_foreign_keys=on")
	assert.Contains(t, write, "_txlock=immediate")

	read := buildDSN("/tmp/meta.sqlite", ModeRead)
	assert.Contains(t, read, "_synchronous=NORMAL")
	assert.NotContains(t, read, "_txlock")
}

func TestOpen_InvalidMode(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), Mode("bogus"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpen_ReadPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.db")
	writeDB, err := Open(path, ModeWrite, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = writeDB.Close() })
	readDB, err := Open(path, ModeRead, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = readDB.Close() })

	var journalMode string
	require.NoError(t, readDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))
	assert.Equal(t, 1, writeDB.Stats().MaxOpenConnections)
	assert.Equal(t, 3, readDB.Stats().MaxOpenConnections)
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := OpenTestSQLite(t)

	for _, table := range []string{"managed_regions", "datasets", "permissions", "publish_history", "rls_dataset_visibility"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Running again is a no-op.
	require.NoError(t, Migrate(db))
}
