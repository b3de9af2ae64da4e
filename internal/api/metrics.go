package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the forecast API.
type Metrics struct {
	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	PathsGenerated     prometheus.Counter
	JobsRunning        prometheus.Gauge
}

// NewMetrics registers the forecast collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SimulationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forecast",
			Name:      "simulations_total",
			Help:      "Completed simulation runs by outcome.",
		}, []string{"status"}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forecast",
			Name:      "simulation_duration_seconds",
			Help:      "Wall-clock duration of simulation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PathsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "forecast",
			Name:      "paths_generated_total",
			Help:      "Total Monte Carlo paths generated.",
		}),
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "forecast",
			Name:      "jobs_running",
			Help:      "Asynchronous simulation jobs currently running.",
		}),
	}
}

// observe records one finished simulation run.
func (m *Metrics) observe(status string, durationSeconds float64, numPaths int) {
	m.SimulationsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.SimulationDuration.Observe(durationSeconds)
		m.PathsGenerated.Add(float64(numPaths))
	}
}
