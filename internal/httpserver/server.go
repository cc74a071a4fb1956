// Package httpserver exposes the aggregation core over a small JSON API:
// search, source listing and a health probe.
package httpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dadosbr/agregador/internal/aggregator"
	"github.com/dadosbr/agregador/internal/health"
	"github.com/dadosbr/agregador/internal/registry"
	"github.com/dadosbr/agregador/internal/types"
)

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server serves the aggregation API.
type Server struct {
	config       *ServerConfig
	appConfig    *types.Config
	aggregator   *aggregator.Aggregator
	registry     *registry.Registry
	checker      *health.Checker
	httpServer   *http.Server
	logger       *log.Logger
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer creates the API server around an already-built aggregator.
func NewServer(serverConfig *ServerConfig, appConfig *types.Config, agg *aggregator.Aggregator, reg *registry.Registry, logger *log.Logger) (*Server, error) {
	if serverConfig == nil {
		serverConfig = DefaultServerConfig()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}
	if agg == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}

	return &Server{
		config:     serverConfig,
		appConfig:  appConfig,
		aggregator: agg,
		registry:   reg,
		checker:    health.NewChecker(reg, nil),
		logger:     logger,
	}, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.started = time.Now()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.loggingMiddleware(s.setupRoutes()),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting aggregation API at http://%s:%d", s.config.Host, s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// setupRoutes configures HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/sources", s.handleSources)
	mux.HandleFunc("/healthz", s.handleHealth)

	return mux
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
