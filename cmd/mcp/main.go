// Package main provides the entry point for the tracestack MCP (Model Context Protocol) server.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"tracestack/internal/clients/collector"
	"tracestack/internal/config"
	mcpsrv "tracestack/internal/mcp"
	"tracestack/internal/metrics"
	"tracestack/internal/orchestrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// stdout carries the protocol, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.SlogLevel()}))

	client := collector.NewClient(cfg.Collector.URL, cfg.Collector.GetTimeoutDuration(), logger)
	orch := orchestrator.New(client, nil, metrics.New(prometheus.NewRegistry()), cfg, logger)

	s := server.NewMCPServer(
		"tracestack-mcp",
		"1.0.0",
	)

	mcpsrv.New(orch).RegisterTools(s)

	logger.Info("tracestack MCP server listening on stdio...")
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
