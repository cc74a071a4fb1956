package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dadosbr/agregador/internal/aggregator"
	appconfig "github.com/dadosbr/agregador/internal/config"
	"github.com/dadosbr/agregador/internal/httpserver"
	"github.com/dadosbr/agregador/internal/metrics"
	"github.com/dadosbr/agregador/internal/observability"
	"github.com/dadosbr/agregador/internal/sources"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the aggregation API server",
	Long: `
The serve command starts an HTTP server exposing the aggregation core:

  GET/POST /api/search   run an aggregated search
  GET      /api/sources  list registered sources
  GET      /healthz      liveness probe

Example:
  agregador serve                # Start with defaults (localhost:8080)
  agregador serve --port 9090    # Use custom port
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the server (defaults to config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to bind the server (defaults to config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags)

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdown, err := observability.Init(cfg)
	if err != nil {
		logger.Printf("Warning: observability init failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	if err := metrics.Init(); err == nil {
		metrics.RecordInvocation(metrics.ModeServe)
		_ = metrics.InitOTelMetrics()
	}
	defer func() { _ = metrics.Close() }()

	reg, err := sources.DefaultRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to build source registry: %w", err)
	}
	agg := aggregator.New(cfg, reg, aggregator.WithLogger(logger))

	serverConfig := httpserver.DefaultServerConfig()
	serverConfig.Host = cfg.ServerHost
	serverConfig.Port = cfg.ServerPort
	if serveHost != "" {
		serverConfig.Host = serveHost
	}
	if servePort > 0 {
		serverConfig.Port = servePort
	}

	server, err := httpserver.NewServer(serverConfig, cfg, agg, reg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Printf("Received signal: %v", sig)
		cancel()
	}()

	return server.Run(ctx)
}
