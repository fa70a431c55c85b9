package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// PPI product pipeline.
type Metrics struct {
	VolumesConsumed  prometheus.Counter
	ProductsProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Classifier boundary metrics.
	ClassifierFallbacks prometheus.Counter
	ClassifyDuration    prometheus.Histogram
	ClassifierEnabled   prometheus.Gauge

	// Projection metrics.
	ProjectionDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		VolumesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "volumes_consumed_total",
			Help:      "Total polar-volume documents read from the source topic.",
		}),
		ProductsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "products_produced_total",
			Help:      "Total PPI products written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "transform_errors_total",
			Help:      "Total volume transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_etl",
			Name:      "batch_size",
			Help:      "Number of volume documents per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ClassifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar_etl",
			Name:      "classifier_fallbacks_total",
			Help:      "Volumes published unclassified after a classifier failure or timeout.",
		}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_etl",
			Name:      "classify_duration_seconds",
			Help:      "External classifier call duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ClassifierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar_etl",
			Name:      "classifier_enabled",
			Help:      "1 when classification enrichment is enabled, 0 otherwise.",
		}),
		ProjectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radar_etl",
			Name:      "projection_duration_seconds",
			Help:      "Polar-to-Cartesian projection duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}

	prometheus.MustRegister(
		m.VolumesConsumed,
		m.ProductsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ClassifierFallbacks,
		m.ClassifyDuration,
		m.ClassifierEnabled,
		m.ProjectionDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default
// registry, avoiding "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		VolumesConsumed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "volumes_consumed_total"}),
		ProductsProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "products_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "radar_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "radar_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "radar_etl", Name: "batch_processing_duration_seconds"}),
		ClassifierFallbacks:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radar_etl", Name: "classifier_fallbacks_total"}),
		ClassifyDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "radar_etl", Name: "classify_duration_seconds"}),
		ClassifierEnabled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "radar_etl", Name: "classifier_enabled"}),
		ProjectionDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "radar_etl", Name: "projection_duration_seconds"}),
	}
}
