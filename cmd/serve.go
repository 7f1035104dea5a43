package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reptin/rcs/internal/backup"
	"github.com/reptin/rcs/internal/bridge"
	"github.com/reptin/rcs/internal/catalog"
	"github.com/reptin/rcs/internal/logger"
	"github.com/reptin/rcs/internal/menu"
	"github.com/reptin/rcs/internal/nav"
	"github.com/reptin/rcs/internal/shortcut"
	"github.com/reptin/rcs/internal/store"
)

var (
	serveListen string
	serveDB     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	Long: `Run the sync server.

The server keeps the platform collection in SQLite, maintains the
context-menu projection and the shortcut index, and exposes:

  /bridge       websocket bridge for trusted catalog pages
  /catalog      suggested-platform catalog
  /health       liveness probe`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: from config or :8787)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Database file (default: from config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if serveDB != "" {
		cfg.Storage.Path = serveDB
	}

	backend, err := store.NewSQLiteBackend(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	s, err := store.Open(backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open engine store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	navigator := nav.SystemBrowser{}

	host := menu.NewMemoryHost()
	projector := menu.NewProjector(s, host, navigator)
	if err := projector.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build menu projection: %v\n", err)
		os.Exit(1)
	}
	defer projector.Stop()

	matcher := shortcut.NewMatcher(s, navigator)
	matcher.Start()
	defer matcher.Stop()

	core := bridge.NewCore(s, projector, Version)
	relay := bridge.NewRelay(core, s, cfg.Bridge.AllowedOrigins)
	relay.Start()
	defer relay.Stop()

	cat, err := catalog.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open catalog: %v\n", err)
		os.Exit(1)
	}
	defer cat.Close()

	if cfg.Backup.Enabled {
		b := backup.NewScheduler(cfg.Storage.Path, cfg.Backup.Dir, cfg.Backup.Keep)
		if err := b.Start(cfg.Backup.Schedule); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to schedule backups: %v\n", err)
			os.Exit(1)
		}
		defer b.Stop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", relay.HandleBridge)
	mux.Handle("/", catalog.NewHandler(cat, Version))

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	go func() {
		logger.Info("[Serve] Listening on %s", cfg.Listen)
		logger.Info("[Serve] Bridge:       ws://0.0.0.0%s/bridge", cfg.Listen)
		logger.Info("[Serve] Catalog:      http://0.0.0.0%s/catalog", cfg.Listen)
		logger.Info("[Serve] Health check: http://0.0.0.0%s/health", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("[Serve] Server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("[Serve] Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	httpServer.Shutdown(shutdownCtx)
	logger.Info("[Serve] Stopped")
}
