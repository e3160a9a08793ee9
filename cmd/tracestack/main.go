// Package main provides the entry point for the tracestack HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tracestack/internal/clients/collector"
	"tracestack/internal/config"
	"tracestack/internal/db"
	"tracestack/internal/metrics"
	"tracestack/internal/orchestrator"
	"tracestack/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires the server and blocks until it stops.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.App.SlogLevel()}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client := collector.NewClient(cfg.Collector.URL, cfg.Collector.GetTimeoutDuration(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cache orchestrator.BatchCache
	if cfg.Cache.Enabled {
		store, err := db.New(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate cache: %w", err)
		}
		go purgeLoop(ctx, store, cfg.Cache.GetTTLDuration(), logger)
		cache = store
	}

	orch := orchestrator.New(client, cache, metrics.New(reg), cfg, logger)
	srv := server.New(cfg, orch, reg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}
	return nil
}

// purgeLoop drops expired batches once per TTL.
func purgeLoop(ctx context.Context, store *db.DB, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeBefore(ctx, now.Add(-ttl))
			if err != nil {
				logger.Warn("Cache purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("Purged cached batches", "count", n)
			}
		}
	}
}
