package internal

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		room_id         TEXT PRIMARY KEY,
		name            TEXT NOT NULL DEFAULT '',
		canonical_alias TEXT NOT NULL DEFAULT '',
		avatar_url      TEXT NOT NULL DEFAULT '',
		encrypted       INTEGER NOT NULL DEFAULT 0,
		is_direct       INTEGER NOT NULL DEFAULT 0,
		unread_count    INTEGER NOT NULL DEFAULT 0,
		membership      TEXT NOT NULL DEFAULT 'join'
	)`,
	`CREATE TABLE IF NOT EXISTS room_aliases (
		alias   TEXT PRIMARY KEY,
		room_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		room_id      TEXT NOT NULL,
		user_id      TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url   TEXT NOT NULL DEFAULT '',
		membership   TEXT NOT NULL DEFAULT 'join',
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		room_id          TEXT NOT NULL,
		stream_ordering  INTEGER NOT NULL,
		event_id         TEXT,
		type             TEXT NOT NULL DEFAULT '',
		sender           TEXT NOT NULL DEFAULT '',
		origin_server_ts INTEGER NOT NULL DEFAULT 0,
		json             TEXT NOT NULL,
		PRIMARY KEY (room_id, stream_ordering)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS events_by_id ON events (room_id, event_id)`,
	`CREATE TABLE IF NOT EXISTS plaintexts (
		room_id   TEXT NOT NULL,
		event_id  TEXT NOT NULL,
		plaintext TEXT NOT NULL,
		PRIMARY KEY (room_id, event_id)
	)`,
}

// OpenDatabase opens an existing SQLite database in read-only mode
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "database ping failed")
	}

	return db, nil
}

// OpenWritableDatabase opens (creating if needed) a SQLite database and
// applies the schema
func OpenWritableDatabase(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// modernc's driver serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := ApplySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ApplySchema creates any missing tables and indexes
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}
