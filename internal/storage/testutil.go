package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory export database for testing.
//
// The database includes:
//   - Foreign key constraints enabled
//   - Full schema created
//   - A single pooled connection, so every query sees the same in-memory database
//   - Automatic cleanup registered with t.Cleanup()
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    db := storage.NewTestDB(t)
//	    // ... test code ...
//	}
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	require.NoError(t, CreateSchema(db))

	return db
}

// NewTestDBFile returns the path of a fresh export database in t.TempDir().
// Use it when a test needs to reopen the database or hand the path to OpenExport.
func NewTestDBFile(t testing.TB) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "export.db")
	db, err := OpenExport(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	return dbPath
}
