// Package monitoring provides Prometheus metrics and health endpoints
// for the sync pipeline.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName is the service label used in metrics.
const ServiceName = "poisync"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

var (
	// Sync cycle metrics
	SyncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poisync_sync_cycles_total",
			Help: "Total number of sync cycles run",
		},
		[]string{"status"},
	)

	SyncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poisync_sync_cycle_duration_seconds",
			Help:    "Full sync cycle duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	CategorySyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poisync_category_syncs_total",
			Help: "Total number of per-category sync attempts",
		},
		[]string{"category", "status"},
	)

	// Overpass metrics
	OverpassRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poisync_overpass_requests_total",
			Help: "Total number of Overpass API requests",
		},
		[]string{"status"},
	)

	OverpassRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poisync_overpass_request_duration_seconds",
			Help:    "Overpass API request duration in seconds",
			Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
	)

	ElementsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poisync_elements_fetched_total",
			Help: "Total number of raw elements returned by Overpass",
		},
	)

	// Conversion and normalization metrics
	FeaturesConverted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poisync_features_converted_total",
			Help: "Total number of features resolved from raw elements",
		},
	)

	FeaturesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poisync_features_dropped_total",
			Help: "Total number of features silently dropped",
		},
		[]string{"stage"},
	)

	// Storage metrics
	PlacesUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poisync_places_upserted_total",
			Help: "Total number of place upserts by outcome",
		},
		[]string{"result"},
	)

	UpsertBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poisync_upsert_batch_duration_seconds",
			Help:    "Duration of a full upsert batch in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poisync_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poisync_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// System metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poisync_goroutines",
			Help: "Number of goroutines",
		},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poisync_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)
)

// ServiceHealth describes the overall service health
type ServiceHealth struct {
	Service     string                `json:"service"`
	Version     string                `json:"version"`
	Status      string                `json:"status"`
	Uptime      time.Duration         `json:"uptime"`
	StartTime   time.Time             `json:"start_time"`
	Connections map[string]ConnStatus `json:"connections"`
	Metrics     map[string]any        `json:"metrics"`
}

// ConnStatus describes the status of one external connection
type ConnStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Latency int64  `json:"latency_ms"`
	Error   string `json:"error,omitempty"`
}

// RecordSyncCycle records the outcome and duration of a sync cycle.
func RecordSyncCycle(status string, duration time.Duration) {
	SyncCyclesTotal.WithLabelValues(status).Inc()
	if status != StatusSkipped {
		SyncCycleDuration.Observe(duration.Seconds())
	}
}

// RecordCategorySync records the outcome of one per-category sync.
func RecordCategorySync(category, status string) {
	CategorySyncsTotal.WithLabelValues(category, status).Inc()
}

// RecordUpsertSummary feeds the outcome counts of an upsert batch into
// the places_upserted counter.
func RecordUpsertSummary(inserted, updated, unchanged, failed int) {
	PlacesUpserted.WithLabelValues("inserted").Add(float64(inserted))
	PlacesUpserted.WithLabelValues("updated").Add(float64(updated))
	PlacesUpserted.WithLabelValues("unchanged").Add(float64(unchanged))
	PlacesUpserted.WithLabelValues("error").Add(float64(failed))
}
