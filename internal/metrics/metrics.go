// Package metrics records credential refresh activity. Metrics are
// optional: nothing is registered until InitMetrics is called, and the
// record functions are safe no-ops before that.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshStartedTotal   *prometheus.CounterVec
	refreshCompletedTotal *prometheus.CounterVec
	sessionRefreshTotal   *prometheus.CounterVec

	metricsOnce sync.Once
)

// InitMetrics initializes all Prometheus metrics. Call once at startup if
// metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		refreshStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudwarden_refresh_started_total",
				Help: "Total number of credential refresh passes started",
			},
			[]string{"strategy"},
		)

		refreshCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudwarden_refresh_completed_total",
				Help: "Total number of credential refresh passes completed",
			},
			[]string{"strategy", "status"},
		)

		sessionRefreshTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudwarden_session_refresh_total",
				Help: "Total number of per-session credential refreshes",
			},
			[]string{"strategy", "status"},
		)
	})
}

// RefreshStarted records the start of a refresh pass.
func RefreshStarted(strategy string) {
	if refreshStartedTotal == nil {
		return
	}
	refreshStartedTotal.WithLabelValues(strategy).Inc()
}

// RefreshCompleted records the outcome of a refresh pass.
func RefreshCompleted(strategy, status string) {
	if refreshCompletedTotal == nil {
		return
	}
	refreshCompletedTotal.WithLabelValues(strategy, status).Inc()
}

// SessionRefreshed records the outcome of one session's refresh.
func SessionRefreshed(strategy, status string) {
	if sessionRefreshTotal == nil {
		return
	}
	sessionRefreshTotal.WithLabelValues(strategy, status).Inc()
}
