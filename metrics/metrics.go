// Package metrics exports session refresh and retry activity to Prometheus.
//
// Metric naming follows Prometheus conventions:
//   - travel_session_ prefix
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/gateway"
	"github.com/jrsteele09/go-travel-session/sessions"
	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
)

// Collector implements sessions.Observer and gateway.RetryObserver.
type Collector struct {
	RefreshTotal           *prometheus.CounterVec
	RefreshDurationSeconds *prometheus.HistogramVec
	Waiters                *prometheus.GaugeVec
	RetriesTotal           *prometheus.CounterVec
}

var (
	_ sessions.Observer     = (*Collector)(nil)
	_ gateway.RetryObserver = (*Collector)(nil)
)

func NewCollector() *Collector {
	return &Collector{
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_session_refresh_total",
				Help: "Completed refresh cycles by role and outcome.",
			},
			[]string{"role", "outcome"},
		),
		RefreshDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travel_session_refresh_duration_seconds",
				Help:    "Duration of refresh cycles in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"role"},
		),
		Waiters: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "travel_session_waiters",
				Help: "Callers attached to the running refresh cycle.",
			},
			[]string{"role"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_session_retries_total",
				Help: "Requests that got a 401, by role and how the retry ended.",
			},
			[]string{"role", "result"},
		),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.RefreshTotal, c.RefreshDurationSeconds, c.Waiters, c.RetriesTotal} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) RefreshStarted(credentials.Role) {}

func (c *Collector) RefreshCompleted(role credentials.Role, err error, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeDenied
	}
	c.RefreshTotal.WithLabelValues(role.String(), outcome).Inc()
	c.RefreshDurationSeconds.WithLabelValues(role.String()).Observe(elapsed.Seconds())
}

func (c *Collector) WaitersChanged(role credentials.Role, waiters int) {
	c.Waiters.WithLabelValues(role.String()).Set(float64(waiters))
}

func (c *Collector) RetryFinished(role credentials.Role, result string) {
	c.RetriesTotal.WithLabelValues(role.String(), result).Inc()
}
