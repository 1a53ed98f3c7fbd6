package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// Upstream API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Pagination metrics
	PagesPerQuery      prometheus.Histogram
	MeasurementsLoaded prometheus.Counter

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Formatter metrics
	DroppedFieldsTotal prometheus.Counter
	GapRowsFilledTotal prometheus.Counter

	// Export metrics
	ExportsTotal      *prometheus.CounterVec
	ExportErrorsTotal *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of upstream API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Upstream API request duration in seconds",
				Buckets:   []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of upstream API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		PagesPerQuery: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pages_per_query",
				Help:      "Number of pages fetched per paginated noise query",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50, 100},
			},
		),

		MeasurementsLoaded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "measurements_loaded_total",
				Help:      "Total number of noise measurements loaded from the API",
			},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of data manager cache hits by entity kind",
			},
			[]string{"entity"},
		),

		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of data manager cache misses by entity kind",
			},
			[]string{"entity"},
		),

		DroppedFieldsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "formatter_dropped_fields_total",
				Help:      "Total number of wire fields dropped by the registry filter",
			},
		),

		GapRowsFilledTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "formatter_gap_rows_filled_total",
				Help:      "Total number of missing-value rows inserted during gap filling",
			},
		),

		ExportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of table exports by format",
			},
			[]string{"format"},
		),

		ExportErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_errors_total",
				Help:      "Total number of export failures by format",
			},
			[]string{"format"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments the upstream request counter
func (c *Collector) RecordAPIRequest(endpoint, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordAPIError increments the upstream error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordCacheHit increments the cache hit counter for an entity kind
func (c *Collector) RecordCacheHit(entity string) {
	c.CacheHitsTotal.WithLabelValues(entity).Inc()
}

// RecordCacheMiss increments the cache miss counter for an entity kind
func (c *Collector) RecordCacheMiss(entity string) {
	c.CacheMissesTotal.WithLabelValues(entity).Inc()
}

// RecordExport increments the export counter for a format
func (c *Collector) RecordExport(format string) {
	c.ExportsTotal.WithLabelValues(format).Inc()
}

// RecordExportError increments the export error counter for a format
func (c *Collector) RecordExportError(format string) {
	c.ExportErrorsTotal.WithLabelValues(format).Inc()
}
