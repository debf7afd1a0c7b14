// Package server exposes the gateway's JSON API over HTTP: folder listings,
// proxied downloads, direct links, transfers and a generic URL proxy.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tonimelisma/drivegate/internal/browse"
	"github.com/tonimelisma/drivegate/internal/metrics"
	"github.com/tonimelisma/drivegate/internal/proxy"
	"github.com/tonimelisma/drivegate/internal/transfer"
)

// Default timeouts for Serve.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
)

// Deps are the collaborators a Server routes to. RootFolderID is read on
// every request so a config reload takes effect without a restart.
type Deps struct {
	Browser      *browse.Browser
	Transfers    *transfer.Service
	Downloader   *proxy.Downloader
	Forwarder    *proxy.Forwarder
	Metrics      *metrics.Metrics
	RootFolderID func() string
	Logger       *slog.Logger
}

// Server is the gateway's HTTP front.
type Server struct {
	browser    *browse.Browser
	transfers  *transfer.Service
	downloader *proxy.Downloader
	forwarder  *proxy.Forwarder
	metrics    *metrics.Metrics
	rootID     func() string
	logger     *slog.Logger
}

// New creates a Server.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		browser:    d.Browser,
		transfers:  d.Transfers,
		downloader: d.Downloader,
		forwarder:  d.Forwarder,
		metrics:    d.Metrics,
		rootID:     d.RootFolderID,
		logger:     logger,
	}
}

// Handler returns the routed handler wrapped in request ID, logging and
// metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/list/{id...}", s.handleList)
	mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
	mux.HandleFunc("GET /api/generate-link", s.handleGenerateLink)
	mux.HandleFunc("GET /api/copy", s.handleCopy)
	mux.HandleFunc("/api/proxy", s.handleProxy)

	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "invalid path"})
	})

	return s.withRequestID(s.withMetrics(mux))
}

// Serve runs the HTTP server on ln until ctx is canceled, then stops
// accepting connections and lets in-flight requests finish within
// shutdownTimeout. Requests still running after that are cut off.
// Request contexts carry ctx's values but not its cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener, readHeaderTimeout, shutdownTimeout time.Duration) error {
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = DefaultReadHeaderTimeout
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", slog.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown timeout exceeded, closing remaining connections")
		_ = srv.Close()

		return fmt.Errorf("server: shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serving: %w", err)
	}

	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
