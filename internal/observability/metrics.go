package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// clustering service.
type Metrics struct {
	RunsTotal   *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration prometheus.Histogram

	StationsLoaded  prometheus.Gauge
	StationsDropped prometheus.Gauge
	ClustersFound   prometheus.Gauge
	NoiseStations   prometheus.Gauge

	AssignmentsPublished prometheus.Counter

	// Dataset fetch metrics.
	FetchRequests     *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration     prometheus.Histogram
	FetchBreakerState prometheus.Gauge // 0=closed, 1=half-open, 2=open
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_clustering",
			Name:      "runs_total",
			Help:      "Clustering runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "station_clustering",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete clustering run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_clustering",
			Name:      "stations_loaded",
			Help:      "Stations remaining after cleaning and bounding-box filtering in the last run.",
		}),
		StationsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_clustering",
			Name:      "stations_dropped",
			Help:      "Stations dropped by cleaning and filtering in the last run.",
		}),
		ClustersFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_clustering",
			Name:      "clusters_found",
			Help:      "Clusters found by the last run, noise excluded.",
		}),
		NoiseStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_clustering",
			Name:      "noise_stations",
			Help:      "Stations labeled as noise by the last run.",
		}),
		AssignmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_clustering",
			Name:      "assignments_published_total",
			Help:      "Total cluster assignments published to the sink topic.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_clustering",
			Name:      "dataset_fetch_requests_total",
			Help:      "Dataset fetch attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "station_clustering",
			Name:      "dataset_fetch_duration_seconds",
			Help:      "Dataset download and parse duration.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "station_clustering",
			Name:      "dataset_fetch_breaker_state",
			Help:      "Fetch circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StationsLoaded,
		m.StationsDropped,
		m.ClustersFound,
		m.NoiseStations,
		m.AssignmentsPublished,
		m.FetchRequests,
		m.FetchDuration,
		m.FetchBreakerState,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "station_clustering", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "station_clustering", Name: "run_duration_seconds"}),
		StationsLoaded:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "station_clustering", Name: "stations_loaded"}),
		StationsDropped:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "station_clustering", Name: "stations_dropped"}),
		ClustersFound:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "station_clustering", Name: "clusters_found"}),
		NoiseStations:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "station_clustering", Name: "noise_stations"}),
		AssignmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_clustering", Name: "assignments_published_total"}),
		FetchRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "station_clustering", Name: "dataset_fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "station_clustering", Name: "dataset_fetch_duration_seconds"}),
		FetchBreakerState:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "station_clustering", Name: "dataset_fetch_breaker_state"}),
	}
}
