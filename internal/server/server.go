/*
Package server publishes the current host list over HTTP.

	GET /hosts       one host per line, text/plain
	GET /hosts.json  {"hosts": [...], "generation": n, "updatedAt": ..., "format": ...}
	GET /healthz     liveness
	GET /readyz      503 until the first successful refresh
	GET /metrics     Prometheus exposition, when mounted

Both list endpoints send an ETag and answer If-None-Match with 304. The text
ETag follows the list fingerprint only. The JSON ETag also carries the refresh
run id, since the document reports updatedAt.
*/
package server

/*
rxhosts — fast tool in Go for publishing the hostnames routed by Traefik
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/x-stp/rxhosts/internal/metrics"
	"github.com/x-stp/rxhosts/internal/publish"
)

const (
	PathHosts     = "/hosts"
	PathHostsJSON = "/hosts.json"
	PathHealthz   = "/healthz"
	PathReadyz    = "/readyz"
	PathMetrics   = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Options configures NewHandler.
type Options struct {
	// MountMetrics serves the Prometheus registry on /metrics.
	MountMetrics bool
	Logger       *zap.Logger
}

type handler struct {
	holder  *publish.Holder
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type hostsDocument struct {
	Hosts      []string  `json:"hosts"`
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Format     string    `json:"format"`
}

// NewHandler returns the routes serving holder.
func NewHandler(holder *publish.Holder, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{holder: holder, logger: logger, metrics: metrics.GetMetrics()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathHosts, h.hosts)
	mux.HandleFunc("GET "+PathHostsJSON, h.hostsJSON)
	mux.HandleFunc("GET "+PathHealthz, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET "+PathReadyz, h.readyz)
	if opts.MountMetrics {
		mux.Handle("GET "+PathMetrics, metrics.Handler())
	}
	return h.instrument(mux)
}

func (h *handler) hosts(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Get()
	if h.notModified(w, r, snap, snap.ETag()) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	body := publish.Render(snap.Hosts, "")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (h *handler) hostsJSON(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Get()
	if h.notModified(w, r, snap, jsonETag(snap)) {
		return
	}
	body, err := json.Marshal(hostsDocument{
		Hosts:      snap.Hosts,
		Generation: snap.Generation,
		UpdatedAt:  snap.UpdatedAt.UTC(),
		Format:     snap.Format.String(),
	})
	if err != nil {
		h.logger.Error("Failed to encode host list", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !h.holder.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("waiting for first refresh"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// notModified sets the validators and writes 304 when the client's copy is
// current.
func (h *handler) notModified(w http.ResponseWriter, r *http.Request, snap *publish.Snapshot, etag string) bool {
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Hosts-Generation", strconv.FormatUint(snap.Generation, 10))
	w.Header().Set("Cache-Control", "no-cache")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

// jsonETag changes on every refresh run because the body carries updatedAt.
func jsonETag(snap *publish.Snapshot) string {
	return fmt.Sprintf(`"%016x-%s-json"`, snap.Fingerprint, snap.RunID)
}

// matchesETag implements the weak comparison used by If-None-Match.
func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if metrics.IsMetricsEnabled() {
			h.metrics.HTTPRequestsTotal.WithLabelValues(routeLabel(r.URL.Path), strconv.Itoa(rec.status)).Inc()
		}
		h.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status))
	})
}

// routeLabel bounds the cardinality of the path label.
func routeLabel(path string) string {
	switch path {
	case PathHosts, PathHostsJSON, PathHealthz, PathReadyz, PathMetrics:
		return path
	default:
		return "other"
	}
}

// Run listens on addr and serves h until ctx is cancelled.
func Run(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h, logger)
}

// Serve serves h on ln and shuts down gracefully when ctx is cancelled.
// It returns nil after a clean shutdown.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownDone <- srv.Shutdown(shutdownCtx)
	}()

	logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownDone; err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
