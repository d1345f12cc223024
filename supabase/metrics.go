package supabase

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-operation counters and latencies. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weekly_finals",
			Subsystem: "datastore",
			Name:      "requests_total",
			Help:      "Data client operations by strategy, operation and outcome.",
		}, []string{"strategy", "operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weekly_finals",
			Subsystem: "datastore",
			Name:      "request_duration_seconds",
			Help:      "Data client operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy", "operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(strategy, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strategy, op, outcome(err)).Inc()
	m.duration.WithLabelValues(strategy, op).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	var (
		ne *NetworkError
		re *RemoteRequestError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ne):
		return "network_error"
	case errors.As(err, &re):
		return "remote_error"
	default:
		return "error"
	}
}
