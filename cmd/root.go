package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JadedBlueEyes/libretto/internal"
	"github.com/JadedBlueEyes/libretto/internal/config"
)

var (
	verbose    bool
	configPath string
	dbPath     string
	strict     bool
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	cfg = config.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "libretto",
	Short: "Normalize and browse stored Matrix room history",
	Long: `Libretto turns stored Matrix room events into a normalized timeline.

Events are classified into messages, state changes, redactions and
undecryptable items. Edits and reactions are folded into the events they
target, replies are resolved, and senders are annotated with their room
profile.

Quick Start:
  libretto import lounge.json              # Load a room dump into the database
  libretto list                            # List stored rooms
  libretto show '#lounge:example.org'      # Print the newest page of a room
  libretto export '!abc:example.org' -f md # Export a room's full history
  libretto serve                           # Serve timelines over HTTP`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("db") {
			loaded.Database.Path = dbPath
		}
		if cmd.Flags().Changed("strict") {
			loaded.Timeline.Strict = strict
		}
		if loaded.Database.Path == "" || loaded.Cache.Dir == "" {
			paths, err := internal.DetectStoragePaths()
			if err != nil {
				return err
			}
			if loaded.Database.Path == "" {
				loaded.Database.Path = paths.GetDatabasePath()
			}
			if loaded.Cache.Dir == "" {
				loaded.Cache.Dir = paths.CacheDir
			}
		}
		cfg = loaded
		internal.LogDebug("config: %s", cfg.SummaryJSON())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the event database (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Fail a page on unsupported events instead of marking them unreadable")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
