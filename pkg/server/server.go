// Package server provides the Tollgate HTTP gateway: the middleware chain
// around the upstream proxy plus the operational endpoints (health,
// readiness, metrics, limits report).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"strato-hq/tollgate/pkg/config"
	"strato-hq/tollgate/pkg/limits"
	"strato-hq/tollgate/pkg/server/middleware"
	"strato-hq/tollgate/pkg/telemetry/logging"
)

// Pinger reports store reachability; readiness checks use it. Both the
// Redis and SQLite stores implement it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the Tollgate gateway server.
type Server struct {
	cfg      *config.ServerConfig
	engine   *limits.Engine
	logger   *logging.Logger
	store    Pinger
	registry *prometheus.Registry
	metrics  config.MetricsConfig

	httpServer *http.Server
	mu         sync.Mutex
	running    bool
}

// Options configures a Server.
type Options struct {
	// Config is the server section of the configuration.
	Config *config.ServerConfig

	// Engine is the limits decision engine.
	Engine *limits.Engine

	// Logger is the gateway logger.
	Logger *logging.Logger

	// Store, when non-nil, is pinged by the readiness endpoint.
	Store Pinger

	// Registry, when non-nil, backs the /metrics endpoint.
	Registry *prometheus.Registry

	// Metrics is the metrics section of the configuration.
	Metrics config.MetricsConfig
}

// New creates a gateway server.
func New(opts Options) *Server {
	return &Server{
		cfg:      opts.Config,
		engine:   opts.Engine,
		logger:   opts.Logger,
		store:    opts.Store,
		registry: opts.Registry,
		metrics:  opts.Metrics,
	}
}

// Start starts the HTTP server and blocks until ListenAndServe returns.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	handler, err := s.routes()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("gateway listening", "address", s.cfg.ListenAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// routes builds the handler tree: operational endpoints bypass the limiter,
// everything else runs through the middleware chain into the upstream.
func (s *Server) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/v1/limits", s.handleLimitsReport)
	if s.metrics.Enabled && s.registry != nil {
		mux.Handle(s.metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	upstream, err := s.upstreamHandler()
	if err != nil {
		return nil, err
	}

	limited := middleware.RateLimit(middleware.RateLimitOptions{
		Engine:            s.engine,
		TenantHeader:      s.cfg.TenantHeader,
		TrustForwardedFor: s.cfg.TrustForwardedFor,
		Logger:            s.logger.Slog(),
	})(upstream)
	mux.Handle("/", limited)

	var handler http.Handler = mux
	handler = middleware.Logging(s.logger.Slog())(handler)
	handler = middleware.RequestID(handler)
	return handler, nil
}

// upstreamHandler proxies to the configured upstream, or answers 502 when
// none is configured (useful for dry runs against the limiter alone).
func (s *Server) upstreamHandler() (http.Handler, error) {
	if s.cfg.UpstreamURL == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no upstream configured", http.StatusBadGateway)
		}), nil
	}

	target, err := url.Parse(s.cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.ErrorContext(r.Context(), "upstream request failed", "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
	return proxy, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReady reports ready only when the shared store answers a ping; a
// gateway that cannot reach its store would fail every attributed request.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}

	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// handleLimitsReport serves the caller's applicable limits with current
// remaining quota. The tenant comes from the same header the limiter uses.
func (s *Server) handleLimitsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	tenantID := strings.TrimSpace(r.Header.Get(s.cfg.TenantHeader))
	if tenantID == "" {
		http.Error(w, "missing tenant header", http.StatusBadRequest)
		return
	}

	entries, err := s.engine.Report(r.Context(), tenantID, r.RemoteAddr)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "limits report failed", "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []limits.ReportEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"limits": entries})
}
