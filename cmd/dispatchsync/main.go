// Command dispatchsync maintains a live session to a dispatch backend and
// tails the synchronized state: useful for smoke-testing an environment and
// as the wiring reference for embedding the sync layer.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ridewire/dispatchsync/internal/config"
	"github.com/ridewire/dispatchsync/internal/conn"
	"github.com/ridewire/dispatchsync/internal/event"
	"github.com/ridewire/dispatchsync/internal/journal"
	"github.com/ridewire/dispatchsync/internal/notify"
	"github.com/ridewire/dispatchsync/internal/router"
	"github.com/ridewire/dispatchsync/internal/subs"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	serverURL := flag.String("url", "", "Backend WebSocket URL (overrides config)")
	tenantID := flag.String("tenant", "", "Tenant id (overrides config)")
	userID := flag.String("user", "", "User id (overrides config)")
	verbose := flag.Bool("v", false, "Debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dispatchsync %s (%s)\n", version, commit)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// CLI overrides
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *tenantID != "" {
		cfg.Server.TenantID = *tenantID
	}
	if *userID != "" {
		cfg.Server.UserID = *userID
	}

	token := os.Getenv("DISPATCHSYNC_TOKEN")
	if token == "" {
		slog.Error("DISPATCHSYNC_TOKEN is not set")
		os.Exit(1)
	}

	// Composition root: stores <- router <- connection manager.
	stores := router.NewStores()
	toasts := notify.NewStore(nil)
	scheduler := notify.NewScheduler(toasts)
	toasts.OnAdd(scheduler.Track)
	registry := subs.NewRegistry(logger)

	opts := []router.Option{router.WithHistorySize(cfg.History.Size)}
	if cfg.Journal.Enabled {
		jnl, err := journal.Open(cfg.Journal.DBPath)
		if err != nil {
			slog.Error("failed to open journal", "path", cfg.Journal.DBPath, "error", err)
			os.Exit(1)
		}
		defer jnl.Close()
		slog.Info("journal opened", "path", cfg.Journal.DBPath)
		opts = append(opts, router.WithJournal(jnl))
	}

	rt := router.New(stores, toasts, registry, logger, opts...)

	mgr := conn.New(conn.Config{
		URL:                  cfg.Server.URL,
		HeartbeatInterval:    cfg.Connection.HeartbeatInterval(),
		BackoffBase:          cfg.Connection.BackoffBase(),
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
	}, rt.Handle, logger)

	mgr.OnStateChange(func(state conn.State, err error) {
		if err != nil {
			slog.Warn("connection state", "state", state, "error", err)
			return
		}
		slog.Info("connection state", "state", state)
	})

	// Tail every event to stdout.
	cancel := registry.Subscribe(event.KindAny, func(evt event.Event) {
		fmt.Printf("%s  %-16s  tenant=%s  trips=%d drivers=%d alerts=%d unread=%d\n",
			evt.Timestamp.Format("15:04:05"), evt.Kind, evt.TenantID,
			stores.Trips.Len(), stores.Drivers.Len(), stores.Alerts.Len(),
			stores.Alerts.UnreadCount())
	})
	defer cancel()

	mgr.Connect(conn.Session{
		TenantID: cfg.Server.TenantID,
		UserID:   cfg.Server.UserID,
		Token:    token,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig)

	mgr.Disconnect()
	scheduler.Stop()
}
