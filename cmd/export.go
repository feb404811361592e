package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"maunium.net/go/mautrix/id"

	"github.com/JadedBlueEyes/libretto/internal"
	"github.com/JadedBlueEyes/libretto/internal/export"
)

var (
	format    string
	outputDir string
	allRooms  bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [room-id-or-alias]...",
	Short: "Export full room histories to files",
	Long: `Export the whole history of one or more rooms to various formats
(jsonl, md, yaml, json).

History is paged backward until the start of the room, so edits and
reactions are folded even when they land on a different page than their
target. Use 'libretto list' to see available rooms, or --all to export
every room.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !allRooms {
			return fmt.Errorf("specify at least one room or --all")
		}

		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx := cmd.Context()
		rooms := args
		if allRooms {
			list, err := a.service.RoomList(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rooms: %w", err)
			}
			rooms = nil
			for _, room := range list.Rooms {
				rooms = append(rooms, string(room.ID))
			}
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return &internal.ExportError{Format: format, Path: outputDir, Err: err}
		}

		if len(rooms) == 0 {
			internal.PrintWarning("No rooms to export")
			return nil
		}
		internal.PrintInfo(fmt.Sprintf("Exporting %d room(s) as %s", len(rooms), exporter.Extension()))

		exported, failed := 0, 0
		for _, room := range rooms {
			if err := exportRoom(ctx, a, exporter, room); err != nil {
				if !allRooms {
					return err
				}
				internal.PrintError(fmt.Sprintf("%s: %v", room, err))
				failed++
				continue
			}
			exported++
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d room(s) failed to export", failed, len(rooms))
		}
		internal.PrintSuccess(fmt.Sprintf("Export complete: %d room(s) exported to %s", exported, outputDir))
		return nil
	},
}

// exportRoom pages through one room's history and writes it to outputDir.
func exportRoom(ctx context.Context, a *app, exporter export.Exporter, room string) error {
	var history *internal.RoomExport
	progress := internal.NewProgress(fmt.Sprintf("Reading %s", room))
	err := progress.Run(ctx, func() error {
		var histErr error
		history, histErr = a.service.History(ctx, room, cfg.Timeline.PageLimit, progress.Set)
		return histErr
	})
	if err != nil {
		return err
	}

	path := filepath.Join(outputDir, exportFileName(history.Room.ID, exporter.Extension()))
	if err := writeExport(exporter, history, path); err != nil {
		return err
	}
	internal.LogInfo("Wrote %s events to %s", humanize.Comma(int64(len(history.Events))), path)
	return nil
}

func writeExport(exporter export.Exporter, history *internal.RoomExport, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(history, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

// exportFileName makes a room ID safe for use as a file name.
func exportFileName(roomID id.RoomID, ext string) string {
	name := strings.TrimPrefix(string(roomID), "!")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("room_%s.%s", name, ext)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format ("+strings.Join(export.Formats(), ", ")+")")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().BoolVar(&allRooms, "all", false, "Export every stored room")
}
