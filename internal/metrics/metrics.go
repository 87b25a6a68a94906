// Package metrics holds the Prometheus instrumentation for search, caches and analytics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Degraded feature labels.
const (
	FeatureVocabulary = "vocabulary"
	FeatureSales      = "sales"
	FeatureFullText   = "fulltext"
	FeatureRelations  = "relations"
)

// Cache labels.
const (
	CacheCategoryClosure = "category_closure"
	CacheSynonyms        = "synonyms"
	CacheVocabulary      = "vocabulary"
)

var (
	// Search Metrics
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsearch_search_requests_total",
			Help: "Total number of search and recommendation calls",
		},
		[]string{"mode", "outcome"}, // mode: text, filter, recommend
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partsearch_search_duration_seconds",
			Help:    "Duration of search and recommendation calls in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	SearchResultItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partsearch_search_result_items",
			Help:    "Number of matching items per call before pagination",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"mode"},
	)

	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsearch_search_degraded_total",
			Help: "Total number of transient read failures that degraded a feature",
		},
		[]string{"feature"},
	)

	// Cache Metrics
	CacheBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsearch_catalog_cache_builds_total",
			Help: "Total number of catalog cache builds",
		},
		[]string{"cache", "outcome"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "partsearch_catalog_cache_entries",
			Help: "Number of entries held by each catalog cache after its last build",
		},
		[]string{"cache"},
	)

	// Analytics Metrics
	AnalyticsReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsearch_analytics_reports_total",
			Help: "Total number of analytics reports by outcome",
		},
		[]string{"outcome"}, // delivered, failed, rejected, dropped
	)

	AnalyticsBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partsearch_analytics_breaker_state",
			Help: "Analytics sink circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsearch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partsearch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordSearch records one search or recommendation call.
func RecordSearch(mode string, duration time.Duration, matched int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SearchRequestsTotal.WithLabelValues(mode, outcome).Inc()
	SearchDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err == nil {
		SearchResultItems.WithLabelValues(mode).Observe(float64(matched))
	}
}

// RecordDegraded counts a transient read failure for feature.
func RecordDegraded(feature string) {
	DegradedTotal.WithLabelValues(feature).Inc()
}

// RecordCacheBuild records a cache build outcome and, on success, its size.
func RecordCacheBuild(cache string, entries int, err error) {
	if err != nil {
		CacheBuildsTotal.WithLabelValues(cache, "error").Inc()
		return
	}
	CacheBuildsTotal.WithLabelValues(cache, "ok").Inc()
	CacheEntries.WithLabelValues(cache).Set(float64(entries))
}

// RecordAnalytics counts an analytics report outcome.
func RecordAnalytics(outcome string) {
	AnalyticsReportsTotal.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
