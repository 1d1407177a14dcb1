package metrics

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
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/x-stp/rxhosts/internal/core"
	"github.com/x-stp/rxhosts/internal/logging"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     bool
	metricsServer      *http.Server
)

// Reasons used for the dropped candidates counter.
const (
	DropInvalid     = "invalid"
	DropBlacklisted = "blacklisted"
	DropDuplicate   = "duplicate"
)

// Metrics contains all the Prometheus metrics for the application
type Metrics struct {
	// Refresh metrics
	RefreshTotal         *prometheus.CounterVec
	RefreshDuration      *prometheus.HistogramVec
	RefreshReloads       *prometheus.CounterVec
	LastSuccessTimestamp prometheus.Gauge

	// Extraction metrics
	HostsPublished    prometheus.Gauge
	RulesScanned      *prometheus.CounterVec
	CandidatesDropped *prometheus.CounterVec
	BlacklistEntries  prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec

	// Output metrics
	SinkWriteDuration *prometheus.HistogramVec
	SinkErrors        *prometheus.CounterVec
}

// Global instance of metrics
var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled = true
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// newMetrics creates and registers all metrics
func newMetrics() *Metrics {
	buckets := []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

	return &Metrics{
		RefreshTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxhosts_refresh_total",
				Help: "Total number of refresh runs",
			},
			[]string{"format", "status"},
		),
		RefreshDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rxhosts_refresh_duration_seconds",
				Help:    "Time spent reading, extracting and publishing the host list",
				Buckets: buckets,
			},
			[]string{"format"},
		),
		RefreshReloads: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxhosts_refresh_reloads_total",
				Help: "Manual reload requests, by outcome",
			},
			[]string{"outcome"},
		),
		LastSuccessTimestamp: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "rxhosts_last_success_timestamp_seconds",
				Help: "Unix time of the last successful refresh",
			},
		),
		HostsPublished: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "rxhosts_hosts_published",
				Help: "Number of hostnames in the published list",
			},
		),
		RulesScanned: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxhosts_rules_scanned_total",
				Help: "Total number of rule strings tokenized",
			},
			[]string{"format"},
		),
		CandidatesDropped: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxhosts_candidates_dropped_total",
				Help: "Candidate hostnames left out of the published list",
			},
			[]string{"reason"},
		),
		BlacklistEntries: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "rxhosts_blacklist_entries",
				Help: "Number of distinct blacklist entries in effect",
			},
		),
		HTTPRequestsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxhosts_http_requests_total",
				Help: "HTTP requests served, by path and status code",
			},
			[]string{"path", "code"},
		),
		SinkWriteDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rxhosts_sink_write_duration_seconds",
				Help:    "Time spent writing the list to an output sink",
				Buckets: buckets,
			},
			[]string{"sink"},
		),
		SinkErrors: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxhosts_sink_errors_total",
				Help: "Failed writes to an output sink",
			},
			[]string{"sink"},
		),
	}
}

// Handler serves the application registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics
func StartMetricsServer(addr string) error {
	if !metricsEnabled {
		return nil
	}

	// Only start once
	var startErr error
	metricsInitialized.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", Handler())

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logging.L().Info("Starting metrics server", zap.String("addr", addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.L().Error("Metrics server error", zap.Error(err))
			}
		}()
	})

	return startErr
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		logging.L().Info("Shutting down metrics server")
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

// MeasureDuration is a helper to measure the duration of a function
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	if !metricsEnabled {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		histogram.With(labels).Observe(duration.Seconds())
	}
}

// ObserveExtraction records the counts of one extraction and the size of the
// list it produced.
func (m *Metrics) ObserveExtraction(res *core.Result) {
	if !metricsEnabled || res == nil {
		return
	}

	m.RulesScanned.WithLabelValues(res.Format.String()).Add(float64(res.Rules))
	m.CandidatesDropped.WithLabelValues(DropInvalid).Add(float64(res.Invalid))
	m.CandidatesDropped.WithLabelValues(DropBlacklisted).Add(float64(res.Blacklisted))
	m.CandidatesDropped.WithLabelValues(DropDuplicate).Add(float64(res.Duplicates))
	m.HostsPublished.Set(float64(len(res.Hosts)))
}

// ObserveRefresh counts a finished refresh run.
func (m *Metrics) ObserveRefresh(format string, err error) {
	if !metricsEnabled {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	} else {
		m.LastSuccessTimestamp.SetToCurrentTime()
	}
	m.RefreshTotal.WithLabelValues(format, status).Inc()
}

// ObserveBlacklist records the number of blacklist entries in effect.
func (m *Metrics) ObserveBlacklist(bl *core.Blacklist) {
	if !metricsEnabled {
		return
	}

	m.BlacklistEntries.Set(float64(bl.Len()))
}
