package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// SitePassesTotal counts discovery passes. status: success, failure; error_type is empty on success.
	SitePassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscout_site_passes_total",
			Help: "Total number of site discovery passes.",
		},
		[]string{"site", "status", "error_type"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardscout_fetch_duration_seconds",
			Help:    "Duration of page fetches.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		},
		[]string{"site", "fetcher"},
	)

	URLsDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscout_urls_discovered_total",
			Help: "Product URLs discovered, split into new and reverified.",
		},
		[]string{"site", "kind"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscout_extractions_total",
			Help: "Attribute extraction attempts by outcome.",
		},
		[]string{"site", "status"},
	)

	PendingQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardscout_pending_extractions",
			Help: "Current number of URLs waiting for attribute extraction.",
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardscout_last_run_timestamp_seconds",
			Help: "Unix time at which the last discovery run finished.",
		},
	)
)
