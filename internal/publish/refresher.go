package publish

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
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/x-stp/rxhosts/internal/core"
	"github.com/x-stp/rxhosts/internal/metrics"
)

const (
	// DefaultInitialBackoff and DefaultMaxBackoff apply when Config leaves them unset.
	DefaultInitialBackoff = 5 * time.Second
	DefaultMaxBackoff     = 5 * time.Minute
	// DefaultTimeout bounds a single refresh run.
	DefaultTimeout = 30 * time.Second

	backoffJitter = 0.2
)

// BlacklistFunc returns the current blacklist text. It is called on every run.
type BlacklistFunc func() (string, error)

// StaticBlacklist returns a BlacklistFunc for fixed text.
func StaticBlacklist(text string) BlacklistFunc {
	return func() (string, error) { return text, nil }
}

// Config controls the refresh schedule and the extraction.
type Config struct {
	Interval       time.Duration // periodic refresh
	MinInterval    time.Duration // minimum spacing of manual reloads, 0 disables throttling
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration

	Format  core.Format
	Options core.Options
}

// Refresher recomputes the host list and publishes it to a Holder and its sinks.
type Refresher struct {
	cfg       Config
	source    Source
	blacklist BlacklistFunc
	holder    *Holder
	sinks     []Sink
	logger    *zap.Logger
	metrics   *metrics.Metrics

	limiter *rate.Limiter
	trigger chan struct{}

	mu          sync.Mutex // serializes RunOnce
	sinkPending bool
}

// NewRefresher wires a refresher. A nil logger discards logs and a nil
// blacklist means no blacklist.
func NewRefresher(cfg Config, src Source, blacklist BlacklistFunc, holder *Holder, logger *zap.Logger, sinks ...Sink) *Refresher {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = max(DefaultMaxBackoff, cfg.InitialBackoff)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if blacklist == nil {
		blacklist = StaticBlacklist("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Refresher{
		cfg:       cfg,
		source:    src,
		blacklist: blacklist,
		holder:    holder,
		sinks:     sinks,
		logger:    logger.Named("refresher"),
		metrics:   metrics.GetMetrics(),
		limiter:   rate.NewLimiter(limit, 1),
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger asks the running loop for an immediate refresh. It returns false when
// the request was throttled. Requests arriving while one is pending coalesce.
func (r *Refresher) Trigger() bool {
	if !r.limiter.Allow() {
		r.observeReload("throttled")
		r.logger.Warn("Reload request throttled", zap.Duration("minInterval", r.cfg.MinInterval))
		return false
	}
	select {
	case r.trigger <- struct{}{}:
		r.observeReload("accepted")
	default:
		r.observeReload("coalesced")
	}
	return true
}

func (r *Refresher) observeReload(outcome string) {
	if metrics.IsMetricsEnabled() {
		r.metrics.RefreshReloads.WithLabelValues(outcome).Inc()
	}
}

// Run refreshes immediately, then on every tick or trigger until ctx is done.
// Retryable failures back off exponentially; other failures wait for the next
// tick. The previous list stays published while runs fail.
func (r *Refresher) Run(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		return errors.New("refresh interval must be positive")
	}

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("Initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Refresher stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
		case <-r.trigger:
			r.logger.Info("Manual reload")
		}

		_, err := r.RunOnce(ctx)
		if err == nil {
			if consecutiveFailures > 0 {
				r.logger.Info("Refresh recovered", zap.Int("failures", consecutiveFailures))
			}
			consecutiveFailures = 0
			continue
		}
		if ctx.Err() != nil {
			continue
		}

		consecutiveFailures++
		if !core.IsRetryable(err) {
			r.logger.Error("Refresh failed, keeping previous list", zap.Int("attempt", consecutiveFailures), zap.Error(err))
			continue
		}

		backoff := calcBackoff(r.cfg.InitialBackoff, r.cfg.MaxBackoff, consecutiveFailures)
		r.logger.Warn("Refresh failed, backing off",
			zap.Int("attempt", consecutiveFailures), zap.Duration("backoff", backoff), zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("Refresher stopped during backoff", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-timer.C:
		}
		// The next tick retries.
	}
}

// RunOnce performs one refresh: read the source and the blacklist, extract,
// publish, then update the sinks if the list changed or a previous sink write
// failed.
func (r *Refresher) RunOnce(ctx context.Context) (snap *Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	log := r.logger.With(zap.String("run", runID))
	formatLabel := r.cfg.Format.String()
	start := time.Now()
	defer func() {
		if metrics.IsMetricsEnabled() {
			r.metrics.RefreshDuration.With(prometheus.Labels{"format": formatLabel}).Observe(time.Since(start).Seconds())
		}
		r.metrics.ObserveRefresh(formatLabel, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	text, err := r.source.Read(ctx)
	if err != nil {
		return nil, err
	}
	blText, err := r.blacklist()
	if err != nil {
		return nil, core.WrapError(err, "failed to load blacklist", true)
	}
	bl := core.ParseBlacklist(blText)
	r.metrics.ObserveBlacklist(bl)

	res, err := core.Extract(text, r.cfg.Format, bl, r.cfg.Options)
	if err != nil {
		return nil, err
	}
	formatLabel = res.Format.String()
	r.metrics.ObserveExtraction(res)
	if res.Format == core.FormatUnknown {
		log.Warn("Configuration has neither frontends nor routers")
	}

	snap, changed := r.holder.Publish(res.Hosts, res.Format, runID, time.Now())
	log.Info("Refresh complete",
		zap.Stringer("format", res.Format),
		zap.Int("hosts", len(res.Hosts)),
		zap.Int("rules", res.Rules),
		zap.Int("invalid", res.Invalid),
		zap.Int("blacklisted", res.Blacklisted),
		zap.Int("duplicates", res.Duplicates),
		zap.Bool("changed", changed),
		zap.Uint64("generation", snap.Generation))

	if changed || r.sinkPending {
		r.sinkPending = !r.writeSinks(ctx, log, snap)
	}
	return snap, nil
}

func (r *Refresher) writeSinks(ctx context.Context, log *zap.Logger, snap *Snapshot) bool {
	ok := true
	for _, s := range r.sinks {
		done := metrics.MeasureDuration(r.metrics.SinkWriteDuration, prometheus.Labels{"sink": s.Name()})
		err := s.Write(ctx, snap)
		done()
		if err != nil {
			ok = false
			if metrics.IsMetricsEnabled() {
				r.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			}
			log.Error("Sink write failed", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
	return ok
}

// calcBackoff doubles initial per consecutive failure up to max and adds
// +/-20% jitter.
func calcBackoff(initial, max time.Duration, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	pow := math.Pow(2, float64(failures-1))
	backoff := time.Duration(float64(initial) * pow)
	if backoff > max || backoff <= 0 {
		backoff = max
	}

	jitter := time.Duration(rand.Float64()*2*backoffJitter*float64(backoff)) -
		time.Duration(backoffJitter*float64(backoff))
	return backoff + jitter
}
