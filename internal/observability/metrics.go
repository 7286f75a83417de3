package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "station_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// station observation pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Station matching metrics.
	MatchScore         prometheus.Histogram
	WeakMatches        prometheus.Counter
	AliasSubstitutions prometheus.Counter
	MatchCache         *prometheus.CounterVec // labels: result={hit,miss}

	// Catalog metrics.
	CatalogStations  prometheus.Gauge
	CatalogWarnings  *prometheus.CounterVec // labels: action={dropped,kept}
	CatalogRefreshes *prometheus.CounterVec // labels: outcome={success,error}

	// Grid sampling metrics.
	GridDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total measurement rows read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total observations written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total measurement rows that could not be parsed or matched.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		MatchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_score",
			Help:      "Similarity score of the chosen catalog station per measurement row.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		WeakMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weak_matches_total",
			Help:      "Matches scoring below the weak-match threshold.",
		}),
		AliasSubstitutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alias_substitutions_total",
			Help:      "Measurement names replaced through the alias table before matching.",
		}),
		MatchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_cache_total",
			Help:      "Match cache lookups by result.",
		}, []string{"result"}),
		CatalogStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_stations",
			Help:      "Stations in the active catalog.",
		}),
		CatalogWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_warnings_total",
			Help:      "Catalog data-quality warnings by action taken.",
		}, []string{"action"}),
		CatalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refreshes_total",
			Help:      "Catalog loads by outcome.",
		}, []string{"outcome"}),
		GridDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_sample_duration_seconds",
			Help:      "Duration of one interpolation grid computation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.MatchScore,
		m.WeakMatches,
		m.AliasSubstitutions,
		m.MatchCache,
		m.CatalogStations,
		m.CatalogWarnings,
		m.CatalogRefreshes,
		m.GridDuration,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
