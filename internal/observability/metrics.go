// Package observability holds the Prometheus metrics of the sink.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flush error reasons.
const (
	ReasonMalformed   = "malformed"
	ReasonResolve     = "resolve"
	ReasonInsert      = "insert"
	ReasonAfterRetry  = "sanitize_retry"
	ReasonUnavailable = "unavailable"
)

// Metrics holds all mongoship Prometheus metrics.
type Metrics struct {
	RecordsInserted   *prometheus.CounterVec
	SanitizeRetries   *prometheus.CounterVec
	FlushErrors       *prometheus.CounterVec
	FlushDuration     prometheus.Histogram
	ChunkLimit        prometheus.Gauge
	CachedCollections prometheus.Gauge
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RecordsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mongoship_records_inserted_total",
			Help: "Records inserted into MongoDB.",
		}, []string{"collection"}),

		SanitizeRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mongoship_sanitize_retries_total",
			Help: "Chunks re-inserted after sanitizing.",
		}, []string{"collection"}),

		FlushErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mongoship_flush_errors_total",
			Help: "Failed chunk flushes by reason.",
		}, []string{"reason"}),

		FlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mongoship_flush_duration_seconds",
			Help:    "Time spent flushing one chunk.",
			Buckets: prometheus.DefBuckets,
		}),

		ChunkLimit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mongoship_chunk_limit_bytes",
			Help: "Negotiated chunk size limit.",
		}),

		CachedCollections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mongoship_cached_collections",
			Help: "Collection handles held in the resolver cache.",
		}),
	}
}
