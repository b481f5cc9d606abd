package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/config"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Vectra server",
	Long: `Start the Vectra HTTP server.

Storage is selected by storage.backend:
  - sqlite (default) - embedded database in ~/.vectra/data/vectra.db
  - defra            - DefraDB; the container is managed unless defra.url is set
  - memory           - nothing persists across restarts

Without worker.url, training jobs are recorded in mock mode and stay pending.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes the document store)
  - /status - Catalog, worker and DefraDB status

Examples:
  vectra serve                    # Start on default port 8080
  vectra serve --port 3000        # Start on custom port
  vectra serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		// Copy so flag overrides don't leak into the manager's snapshot
		loaded := *cm.Get()
		cfg := &loaded

		logger, err := newLogger(os.Stdout, cfg.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		cm.SetLogger(logger)

		// Flags override the configured listener
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if cfg.Catalog.Dir == "" && h.CatalogExists() {
			cfg.Catalog.Dir = h.CatalogPath()
		}

		srv, err := server.New(server.Config{
			AppConfig:     cfg,
			ConfigManager: cm,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		if file := cm.File(); file != "" {
			logger.Info("watching config file", "file", file)
			cm.WatchConfig()
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

// newLogger builds the process logger from log.level and log.format.
func newLogger(w io.Writer, cfg config.LogCfg) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log.format %q", cfg.Format)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
