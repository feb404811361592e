package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/JadedBlueEyes/libretto/internal"
)

var (
	healthcheckDetails bool
)

var (
	passStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that libretto can read the database and assemble timelines",
	Long: `Check the health of libretto by verifying:
  • Database location and access
  • Room list loading
  • Timeline assembly for the newest page of every room
  • Cache directory access

This command is useful for debugging an imported database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, sectionStyle.Render("🔍 Libretto Health Check"))
		_, _ = fmt.Fprintln(out)

		// Step 1: Database location
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 1: Locating database..."))
		_, _ = fmt.Fprintf(out, "   Database: %s\n", cfg.Database.Path)
		if healthcheckDetails {
			_, _ = fmt.Fprintf(out, "   Config:   %s\n", cfg.SummaryJSON())
			if paths, err := internal.DetectStoragePaths(); err == nil && paths.GetDatabasePath() != cfg.Database.Path {
				_, _ = fmt.Fprintf(out, "   Default:  %s (present: %v)\n", paths.GetDatabasePath(), paths.DatabaseExists())
			}
		}
		info, err := os.Stat(cfg.Database.Path)
		if err != nil {
			_, _ = fmt.Fprintln(out, failStyle.Render("❌ Database not found"))
			_, _ = fmt.Fprintln(out, "   • Run 'libretto import <dump.json>' to create it")
			return fmt.Errorf("health check failed: %w", err)
		}
		_, _ = fmt.Fprintln(out, passStyle.Render("✅ Database found"))
		if healthcheckDetails {
			_, _ = fmt.Fprintf(out, "   Size: %d bytes\n", info.Size())
		}
		_, _ = fmt.Fprintln(out)

		a, err := openApp()
		if err != nil {
			_, _ = fmt.Fprintln(out, failStyle.Render("❌ Failed to open database:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer func() { _ = a.Close() }()

		// Step 2: Room list
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 2: Loading rooms..."))
		list, err := a.service.RoomList(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintln(out, failStyle.Render("❌ Failed to load rooms:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		_, _ = fmt.Fprintln(out, passStyle.Render(fmt.Sprintf("✅ Found %d room(s)", len(list.Rooms))))
		_, _ = fmt.Fprintln(out)

		// Step 3: Timeline assembly
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 3: Assembling timelines..."))
		items, failed := 0, 0
		for _, room := range list.Rooms {
			page, err := a.service.Timeline(cmd.Context(), string(room.ID), "", cfg.Timeline.PageLimit)
			if err != nil {
				_, _ = fmt.Fprintln(out, failStyle.Render(fmt.Sprintf("❌ %s:", room.ID)), err)
				return fmt.Errorf("health check failed: %w", err)
			}
			roomFailed := countFailed(page.Timeline.Events)
			items += len(page.Timeline.Events)
			failed += roomFailed
			if healthcheckDetails {
				_, _ = fmt.Fprintf(out, "   %s: %d item(s), %d failed\n", room.Name, len(page.Timeline.Events), roomFailed)
			}
		}
		if failed > 0 {
			_, _ = fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("⚠️  %d of %d item(s) failed to parse", failed, items)))
		} else {
			_, _ = fmt.Fprintln(out, passStyle.Render(fmt.Sprintf("✅ Assembled %d item(s)", items)))
		}
		_, _ = fmt.Fprintln(out)

		// Step 4: Cache directory
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 4: Checking cache..."))
		if !cfg.Cache.Enabled {
			_, _ = fmt.Fprintln(out, "   • Cache disabled")
		} else if err := checkWritable(cfg.Cache.Dir); err != nil {
			_, _ = fmt.Fprintln(out, warnStyle.Render("⚠️  Cache directory not writable:"), err)
		} else {
			_, _ = fmt.Fprintln(out, passStyle.Render("✅ Cache directory writable"))
		}
		_, _ = fmt.Fprintln(out)

		// Summary
		_, _ = fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		_, _ = fmt.Fprintln(out)
		if len(list.Rooms) == 0 {
			_, _ = fmt.Fprintln(out, warnStyle.Render("⚠️  Database available but no rooms found"))
			return nil
		}
		_, _ = fmt.Fprintln(out, passStyle.Render("✅ Health check passed!"))
		_, _ = fmt.Fprintln(out, passStyle.Render(fmt.Sprintf("   • Rooms: %d found", len(list.Rooms))))
		return nil
	},
}

func countFailed(events []internal.TimelineEvent) int {
	n := 0
	for _, ev := range events {
		switch ev.Content.(type) {
		case *internal.FailedToParseMessageLike, *internal.FailedToParseState:
			n++
		}
	}
	return n
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".healthcheck-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
