package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type serverMetrics struct {
	requests  *prometheus.CounterVec
	rotations *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) (*serverMetrics, error) {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_stub_requests_total",
				Help: "Requests handled by the dev stub server by route and status.",
			},
			[]string{"route", "status"},
		),
		rotations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_stub_refresh_rotations_total",
				Help: "Refresh token exchanges by endpoint and result.",
			},
			[]string{"endpoint", "result"},
		),
	}
	for _, c := range []prometheus.Collector{m.requests, m.rotations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
