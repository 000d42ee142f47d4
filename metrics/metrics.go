// Package metrics provides Prometheus metrics for the session and caching
// layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for session, refresh, cache and guard
// activity.
type Metrics struct {
	enabled bool

	// Authentication metrics
	authRequestsTotal *prometheus.CounterVec
	authFailuresTotal *prometheus.CounterVec

	// Token refresh metrics
	refreshesTotal    *prometheus.CounterVec
	forcedEndsTotal   prometheus.Counter
	refreshDuration   prometheus.Histogram

	// Response cache metrics
	cacheEntries   prometheus.Gauge
	cacheHitsTotal prometheus.Counter
	cacheMissTotal prometheus.Counter

	// Navigation guard metrics
	guardDecisionsTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.authRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestion_auth_requests_total",
		Help: "Total identity-backend requests",
	}, []string{"op"})

	m.authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestion_auth_failures_total",
		Help: "Total identity-backend failures",
	}, []string{"op", "status"})

	m.refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestion_token_refreshes_total",
		Help: "Total token refresh outcomes",
	}, []string{"outcome"})

	m.forcedEndsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gestion_forced_session_ends_total",
		Help: "Total forced session ends",
	})

	m.refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gestion_token_refresh_duration_seconds",
		Help:    "Token refresh duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gestion_response_cache_entries",
		Help: "Current number of entries in the response cache",
	})

	m.cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gestion_response_cache_hits_total",
		Help: "Total response cache hits",
	})

	m.cacheMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gestion_response_cache_misses_total",
		Help: "Total response cache misses",
	})

	m.guardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestion_guard_decisions_total",
		Help: "Total navigation guard decisions",
	}, []string{"outcome"})

	return m
}

// RecordAuthRequest records an identity-backend call ("login", "refresh",
// "revoke").
func (m *Metrics) RecordAuthRequest(op string) {
	if !m.enabled {
		return
	}
	m.authRequestsTotal.WithLabelValues(op).Inc()
}

// RecordAuthFailure records a failed identity-backend call.
func (m *Metrics) RecordAuthFailure(op, status string) {
	if !m.enabled {
		return
	}
	m.authFailuresTotal.WithLabelValues(op, status).Inc()
}

// RecordRefresh records a refresh outcome ("success", "failure", "coalesced")
// with its duration.
func (m *Metrics) RecordRefresh(outcome string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.refreshesTotal.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(durationSeconds)
}

// RecordForcedEnd records a forced session end.
func (m *Metrics) RecordForcedEnd() {
	if !m.enabled {
		return
	}
	m.forcedEndsTotal.Inc()
}

// CacheHit records a response cache hit.
func (m *Metrics) CacheHit() {
	if !m.enabled {
		return
	}
	m.cacheHitsTotal.Inc()
}

// CacheMiss records a response cache miss.
func (m *Metrics) CacheMiss() {
	if !m.enabled {
		return
	}
	m.cacheMissTotal.Inc()
}

// CacheSize sets the current response cache size.
func (m *Metrics) CacheSize(n int) {
	if !m.enabled {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// RecordGuardDecision records a navigation guard outcome ("allow",
// "redirect_login", "redirect_forbidden").
func (m *Metrics) RecordGuardDecision(outcome string) {
	if !m.enabled {
		return
	}
	m.guardDecisionsTotal.WithLabelValues(outcome).Inc()
}
