package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JadedBlueEyes/libretto/internal"
)

var importCmd = &cobra.Command{
	Use:   "import <dump.json>...",
	Short: "Import room dumps into the database",
	Long: `Import one or more room dumps into the event database.

A room dump is a JSON file with the room's metadata, its members and its
events oldest first. Events already in the database are skipped, so the
same dump can be imported again after it grows.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return &internal.StorageError{Path: cfg.Database.Path, Op: "write", Err: err}
		}
		db, err := internal.OpenWritableDatabase(ctx, cfg.Database.Path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		store := internal.NewStore(db)

		for _, path := range args {
			dump, err := internal.LoadRoomDump(path)
			if err != nil {
				return err
			}
			var res *internal.ImportResult
			err = internal.ShowProgress(ctx, fmt.Sprintf("Importing %s", dump.RoomID), func() error {
				var importErr error
				res, importErr = store.ImportRoom(ctx, dump)
				return importErr
			})
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("%s: %s events imported, %s already present, %d members",
				res.RoomID, humanize.Comma(int64(res.EventsImported)), humanize.Comma(int64(res.EventsSkipped)), res.Members)
			if res.EventsImported == 0 {
				internal.PrintWarning(summary)
			} else {
				internal.PrintSuccess(summary)
			}
		}

		if cfg.Cache.Enabled {
			if err := internal.NewCacheManager(cfg.Cache.Dir).ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
