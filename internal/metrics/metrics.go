package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"medialib/pkg/search"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medialib_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medialib_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Search metrics
var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_search_requests_total",
			Help: "Total number of listing requests by resource",
		},
		[]string{"resource", "filtered"},
	)

	SearchFiltersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_search_filters_total",
			Help: "Filter keys applied to listing queries",
		},
		[]string{"resource", "key"},
	)
)

// Live sync metrics
var (
	LibraryEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_library_events_total",
			Help: "Library events published by type",
		},
		[]string{"type"},
	)

	SyncClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "medialib_sync_clients",
			Help: "Connected live sync clients",
		},
		[]string{"transport"}, // "tcp", "ws"
	)
)

// ObserveSearch records one listing request and the filter keys it used.
func ObserveSearch(resource string, applied []search.Key) {
	filtered := "false"
	if len(applied) > 0 {
		filtered = "true"
	}
	SearchRequestsTotal.WithLabelValues(resource, filtered).Inc()
	for _, k := range applied {
		SearchFiltersTotal.WithLabelValues(resource, k.String()).Inc()
	}
}
