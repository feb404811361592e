package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB opens a private in-memory sqlite database. Every sqlite
// connection gets its own memory database, so the pool is capped at one.
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openSQLite(t, ":memory:")
	db.SetMaxOpenConns(1)
	return db
}

// CreateTestDBPath names a database file that does not exist yet, in a
// directory removed when the test ends.
func CreateTestDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "libretto.db")
}

func openSQLite(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open sqlite %s: %v", dsn, err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to reach sqlite %s: %v", dsn, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
