// internal/server/metrics.go
package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nrcms"

// Metrics holds the Prometheus collectors of the watcher and dev server.
type Metrics struct {
	Builds        *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	Events        *prometheus.CounterVec
	Clients       prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Builds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Site generations by result",
			},
			[]string{"result"},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Time taken by one site generation",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_events_total",
				Help:      "File system events seen by the watcher",
				// op is one of create, write, remove, rename
			},
			[]string{"op"},
		),
		Clients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_reload_clients",
				Help:      "Connected live reload clients",
			},
		),
	}
}

// observeBuild records one generation. It is safe to call on a nil
// *Metrics.
func (m *Metrics) observeBuild(start time.Time, err error) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.Builds.WithLabelValues("failure").Inc()
		return
	}
	m.Builds.WithLabelValues("success").Inc()
}

func (m *Metrics) observeEvent(op string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(op).Inc()
}

func (m *Metrics) clientsChanged(delta float64) {
	if m == nil {
		return
	}
	m.Clients.Add(delta)
}
