// Package server exposes snapshots over HTTP: on-demand JSON or CBOR,
// a server-sent event stream, platform details and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	constants "sysmon/config"
	"sysmon/internal/encoding"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
	"sysmon/internal/sources"
)

// Collector produces an on-demand snapshot.
type Collector interface {
	Collect(ctx context.Context) (*metrics.Snapshot, error)
}

// Options configures a Server.
type Options struct {
	Addr     string
	Gatherer prometheus.Gatherer // nil disables /metrics
	Platform func(ctx context.Context) sources.Platform
	Log      *logger.Logger
}

// Server is the HTTP surface of a running sysmon.
type Server struct {
	collector Collector
	hub       *Hub
	opts      Options
	log       *logger.Logger
	started   time.Time
}

// New creates a server. hub may be nil, which disables /api/events.
func New(c Collector, hub *Hub, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = constants.DEFAULT_LISTEN_ADDR
	}
	if opts.Platform == nil {
		opts.Platform = sources.DescribePlatform
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	return &Server{collector: c, hub: hub, opts: opts, log: opts.Log, started: time.Now()}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/platform", s.handlePlatform)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.hub != nil {
		mux.Handle("GET /api/events", s.hub)
	}
	if s.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP API listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.HTTP_SHUTDOWN_SEC*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context())
	if err != nil {
		s.log.Warning("On-demand snapshot failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, r, snap)
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.opts.Platform(r.Context()))
}

type health struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Subscribers   int    `json:"sse_clients"`
}

type poisonChecker interface {
	Poisoned() bool
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := health{Status: "ok", UptimeSeconds: int64(time.Since(s.started).Seconds())}
	if s.hub != nil {
		h.Subscribers = s.hub.Clients()
	}
	status := http.StatusOK
	if pc, ok := s.collector.(poisonChecker); ok && pc.Poisoned() {
		h.Status = "recovering"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v interface{}) {
	if encoding.AcceptsCBOR(r.Header.Get("Accept")) {
		if err := encoding.WriteCBOR(w, http.StatusOK, v); err != nil {
			s.log.Error("CBOR encode failed: %v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", constants.CONTENT_TYPE_JSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
