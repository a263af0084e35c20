package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roundtable-ai/roundtable/internal/api"
	"github.com/roundtable-ai/roundtable/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the RoundTable API server.

The server exposes session launch, inspection, and analytics endpoints
under /api/v1, plus a server-sent events stream of deliberation
progress at /api/v1/events.

Examples:
  # Start with defaults (127.0.0.1:8787)
  roundtable serve

  # Start on a custom host and port
  roundtable serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"Host address to bind to (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"Port to listen on (default from config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfigWithLoader()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	logger := newLogger(cfg)

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	server := api.New(cfg.Server, eng.manager, eng.store, eng.registry, logger,
		api.WithBus(eng.bus),
		api.WithSessionDefaults(cfg.Session))

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	logger.Info("server started",
		"addr", server.Addr(),
		"adapter", cfg.Completion.Adapter)

	// Live-reload the log level when the config file changes.
	watcher, err := loader.WatchConfig(func(next *config.Config) {
		logger.SetLevel(next.Log.Level)
		logger.Info("configuration reloaded", "log_level", next.Log.Level)
	})
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	}
	if watcher != nil {
		defer watcher.Close()
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down server...")

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Warn("server shutdown", "error", err)
	}

	// Give running sessions a bounded window to cancel and persist.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	eng.close(ctx)

	logger.Info("server stopped")
	return nil
}
