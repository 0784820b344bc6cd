package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and search pipeline metrics.
var (
	BrowserSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pagevec",
			Name:      "browser_sessions_active",
			Help:      "Browser sessions currently open",
		},
	)

	BrowserSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagevec",
			Name:      "browser_sessions_total",
			Help:      "Browser acquisitions by result",
		},
		[]string{"result"}, // ok, busy, canceled, launch_error, load_error, extract_error
	)

	BrowserQueueWaiting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pagevec",
			Name:      "browser_queue_waiting",
			Help:      "Acquisitions queued for a free browser session",
		},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagevec",
			Name:      "ai_requests_total",
			Help:      "Generative AI calls by operation and outcome",
		},
		[]string{"operation", "outcome"}, // normalize|rewrite, ok|degraded
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagevec",
			Name:      "ingest_total",
			Help:      "Ingestion requests by outcome",
		},
		[]string{"outcome"}, // ok, degraded, client_error, server_error
	)

	IngestStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pagevec",
			Name:      "ingest_stage_duration_seconds",
			Help:      "Time spent in each ingestion stage",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagevec",
			Name:      "search_total",
			Help:      "Search requests by outcome",
		},
		[]string{"outcome"},
	)

	SearchRewriteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagevec",
			Name:      "search_rewrite_total",
			Help:      "Query rewrites by outcome",
		},
		[]string{"outcome"}, // rewritten, literal
	)

	SearchKNNWidenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagevec",
			Name:      "search_knn_widen_total",
			Help:      "KNN candidate fetches widened because of ties at the cutoff",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion, browser, AI and search metrics.
// Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		BrowserSessionsActive,
		BrowserSessionsTotal,
		BrowserQueueWaiting,
		AIRequestsTotal,
		IngestTotal,
		IngestStageDuration,
		SearchTotal,
		SearchRewriteTotal,
		SearchKNNWidenTotal,
	)
	pipelineMetricsRegistered = true
}
