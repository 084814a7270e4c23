// Package server implements the HTTP server that hosts the event entry
// point (EventGrid webhook), the similarity query endpoint, and the
// operational endpoints (health, readiness, metrics).
// The server is started by the `imgsearch serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xximjasonxx/image-search-example/internal/logging"
	"github.com/xximjasonxx/image-search-example/internal/pipeline"
)

// New constructs a Server from the provided pipeline, searcher, and config.
func New(p *pipeline.Pipeline, s *pipeline.Searcher, cfg *Config) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("server: searcher must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full pipeline run: two 30s external
		// calls plus the index write.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	registry := cfg.MetricsRegistry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	gatherer := cfg.MetricsGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	srv := &Server{
		processor: p,
		searcher:  s,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(registry),
	}

	if cfg.APIKey == "" {
		log.Warn("server: IMGSEARCH_API_KEY not set, API authentication is disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	srv.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/events",
		authMiddleware(cfg.APIKey, srv.instrument("events", http.HandlerFunc(srv.handleEvents))))
	mux.Handle("POST /api/search",
		authMiddleware(cfg.APIKey, rl.middleware(srv.instrument("search", http.HandlerFunc(srv.handleSearch)))))
	mux.Handle("GET /api/health", srv.instrument("health", http.HandlerFunc(srv.handleHealth)))
	mux.Handle("GET /api/ready", srv.instrument("ready", http.HandlerFunc(srv.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("imgsearch server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
