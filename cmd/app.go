package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/JadedBlueEyes/libretto/internal"
)

// app is the read side of the database wired into a RoomService.
type app struct {
	db        *sql.DB
	store     *internal.Store
	members   *internal.CachedDirectory
	cache     *internal.CacheManager
	assembler *internal.Assembler
	service   *internal.RoomService
}

func openApp() (*app, error) {
	path := cfg.Database.Path
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s not found (run 'libretto import' first): %w", path, err)
	}
	db, err := internal.OpenDatabase(path)
	if err != nil {
		return nil, err
	}

	a := &app{db: db, store: internal.NewStore(db)}
	a.members = internal.NewCachedDirectory(a.store)

	var source internal.EventSource = a.store
	if cfg.Cache.Enabled {
		a.cache = internal.NewCacheManager(cfg.Cache.Dir)
		source = internal.NewCachingSource(a.store, a.cache, path)
	}

	a.assembler = internal.NewAssembler(
		internal.NewClassifier(a.store),
		internal.NewProfileEnricher(),
		internal.AssembleOptions{Strict: cfg.Timeline.Strict},
	)
	a.service = internal.NewRoomService(a.store, source, a.store, a.members, a.assembler)
	return a, nil
}

// resetCaches drops everything derived from the database file.
func (a *app) resetCaches() {
	a.members.Invalidate()
	if a.cache == nil {
		return
	}
	if err := a.cache.ClearCache(); err != nil {
		internal.LogWarn("Failed to clear cache: %v", err)
	}
}

func (a *app) Close() error {
	return a.db.Close()
}
