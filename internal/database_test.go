package internal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JadedBlueEyes/libretto/testutil"
)

func TestOpenDatabase_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	if db, err := OpenDatabase(path); err == nil {
		_ = db.Close()
		t.Error("OpenDatabase() of a missing file should fail in read-only mode")
	}
}

func TestOpenWritableDatabase(t *testing.T) {
	ctx := context.Background()
	path := testutil.CreateTestDBPath(t)

	db, err := OpenWritableDatabase(ctx, path)
	if err != nil {
		t.Fatalf("OpenWritableDatabase() error = %v", err)
	}
	store := NewStore(db)
	if _, err := store.ImportRoom(ctx, testDump(t, 2)); err != nil {
		t.Fatalf("ImportRoom() error = %v", err)
	}
	_ = db.Close()

	ro, err := OpenDatabase(path)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer func() { _ = ro.Close() }()

	rooms, err := NewStore(ro).Rooms(ctx)
	if err != nil {
		t.Fatalf("Rooms() error = %v", err)
	}
	if len(rooms) != 1 || rooms[0].EventCount != 2 {
		t.Errorf("Rooms() = %+v, want one room with 2 events", rooms)
	}
}

func TestApplySchema_Idempotent(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	for i := 0; i < 2; i++ {
		if err := ApplySchema(context.Background(), db); err != nil {
			t.Fatalf("ApplySchema() run %d error = %v", i, err)
		}
	}
}
