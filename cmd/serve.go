package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JadedBlueEyes/libretto/internal"
	"github.com/JadedBlueEyes/libretto/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve room timelines over HTTP",
	Long: `Serve the room list and assembled timelines as JSON.

Endpoints:
  GET /healthz
  GET /rooms
  GET /rooms/{room}/timeline?from=&limit=
  GET /metrics

When watching is enabled, changes to the database file reset the member
and page caches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		addr := cfg.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := httpapi.New(a.service, httpapi.Options{
			Addr:           addr,
			PageLimit:      cfg.Timeline.PageLimit,
			RateLimitRPS:   cfg.HTTP.RateLimitRPS,
			RateLimitBurst: cfg.HTTP.RateLimitBurst,
		})

		if cfg.HTTP.WatchDB {
			err := httpapi.WatchDatabase(ctx, cfg.Database.Path, func() {
				a.resetCaches()
				srv.Metrics().IncCacheResets()
			})
			if err != nil {
				internal.LogWarn("Not watching %s: %v", cfg.Database.Path, err)
			}
		}

		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}
