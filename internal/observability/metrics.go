package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// enrichment batch runner.
type Metrics struct {
	AlertsIngested       prometheus.Counter
	AlertsRelevant       prometheus.Counter
	FeedParseErrors      prometheus.Counter
	SupersessionsApplied prometheus.Counter
	IngestRunning        prometheus.Gauge

	// Enrichment metrics.
	EnrichSkips  *prometheus.CounterVec // labels: reason={missing_reference_data,no_qualifying_zips,malformed_geometry,persistence}
	StrategyZips *prometheus.CounterVec // labels: strategy={region,geometry,place_name,high_confidence}

	// Batch processing metrics.
	BatchAlerts   prometheus.Histogram
	BatchDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AlertsIngested,
		m.AlertsRelevant,
		m.FeedParseErrors,
		m.SupersessionsApplied,
		m.IngestRunning,
		m.EnrichSkips,
		m.StrategyZips,
		m.BatchAlerts,
		m.BatchDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AlertsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_enrich",
			Name:      "alerts_ingested_total",
			Help:      "Total alert versions read from the feed and upserted.",
		}),
		AlertsRelevant: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_enrich",
			Name:      "alerts_relevant_total",
			Help:      "Total alerts the damage classifier marked relevant.",
		}),
		FeedParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_enrich",
			Name:      "feed_parse_errors_total",
			Help:      "Total feed messages dropped as unparseable.",
		}),
		SupersessionsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_enrich",
			Name:      "supersessions_applied_total",
			Help:      "Total alert versions newly marked superseded, counted once per transition.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alert_enrich",
			Name:      "ingest_running",
			Help:      "1 while a batch is being processed, 0 otherwise.",
		}),
		EnrichSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alert_enrich",
			Name:      "enrich_skips_total",
			Help:      "Per-record enrichment skips by reason.",
		}, []string{"reason"}),
		StrategyZips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alert_enrich",
			Name:      "strategy_zips_total",
			Help:      "Postal codes matched, by justifying strategy.",
		}, []string{"strategy"}),
		BatchAlerts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alert_enrich",
			Name:      "batch_alerts",
			Help:      "Number of alerts per ingested batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200, 500},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alert_enrich",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete classify-upsert-resolve-enrich batch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
