package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil safe, a nil *Metrics records nothing
type Metrics struct {
	Registry *prometheus.Registry

	ForecastRuns     *prometheus.CounterVec
	ForecastDuration prometheus.Histogram
	SimulatedPaths   prometheus.Counter
}

func NewMetrics() *Metrics {
	mt := &Metrics{
		Registry: prometheus.NewRegistry(),
		ForecastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mc_forecast_runs_total",
			Help: "Forecast runs by final status.",
		}, []string{"status"}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mc_forecast_duration_seconds",
			Help:    "Wall time of a forecast run, history load included.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SimulatedPaths: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mc_simulated_paths_total",
			Help: "Random walks generated across all successful runs.",
		}),
	}

	mt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		mt.ForecastRuns,
		mt.ForecastDuration,
		mt.SimulatedPaths,
	)

	return mt
}

func (mt *Metrics) observeRun(status string, elapsed time.Duration, paths int) {
	if mt == nil {
		return
	}

	mt.ForecastRuns.WithLabelValues(status).Inc()
	mt.ForecastDuration.Observe(elapsed.Seconds())
	if paths > 0 {
		mt.SimulatedPaths.Add(float64(paths))
	}
}

func (mt *Metrics) Handler() http.Handler {
	if mt == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mt.Registry, promhttp.HandlerOpts{})
}
