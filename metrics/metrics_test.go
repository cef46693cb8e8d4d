package metrics_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/gateway"
	"github.com/jrsteele09/go-travel-session/metrics"
	"github.com/jrsteele09/go-travel-session/sessions"
	"github.com/jrsteele09/go-travel-session/sessions/refresherfake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(gv *prometheus.GaugeVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := gv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func histogramCount(hv *prometheus.HistogramVec, labels ...string) uint64 {
	m := &dto.Metric{}
	if h, ok := hv.WithLabelValues(labels...).(prometheus.Metric); ok {
		if err := h.Write(m); err != nil {
			return 0
		}
		return m.GetHistogram().GetSampleCount()
	}
	return 0
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector()
	require.NoError(t, c.Register(reg))
	require.Error(t, c.Register(reg), "second registration collides")
}

func TestCollectorRecords(t *testing.T) {
	c := metrics.NewCollector()

	c.RefreshCompleted(credentials.RoleAdmin, nil, 120*time.Millisecond)
	c.RefreshCompleted(credentials.RoleAdmin, errors.New("denied"), time.Second)
	c.WaitersChanged(credentials.RoleUser, 3)
	c.RetryFinished(credentials.RoleUser, gateway.RetrySucceeded)

	require.Equal(t, 1.0, counterValue(c.RefreshTotal, "admin", metrics.OutcomeSuccess))
	require.Equal(t, 1.0, counterValue(c.RefreshTotal, "admin", metrics.OutcomeDenied))
	require.Equal(t, uint64(2), histogramCount(c.RefreshDurationSeconds, "admin"))
	require.Equal(t, 3.0, gaugeValue(c.Waiters, "user"))
	require.Equal(t, 1.0, counterValue(c.RetriesTotal, "user", gateway.RetrySucceeded))
}

func TestCollectorAsSessionObserver(t *testing.T) {
	const n = 8
	c := metrics.NewCollector()
	fake := refresherfake.NewFakeRefresher("tok")
	fake.Hold()

	s, err := sessions.New(credentials.RoleUser, credentials.NewMemoryStore(nil), fake, sessions.WithObserver(c))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AwaitRefreshedCredential(context.Background())
		}()
	}
	require.Eventually(t, func() bool {
		return gaugeValue(c.Waiters, "user") == n
	}, 2*time.Second, time.Millisecond)

	fake.Release()
	wg.Wait()
	s.Wait()

	require.Equal(t, 1.0, counterValue(c.RefreshTotal, "user", metrics.OutcomeSuccess))
	require.Equal(t, 0.0, gaugeValue(c.Waiters, "user"))
}
