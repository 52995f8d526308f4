// Package metrics holds the Prometheus collectors of the portal.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ListingsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_listings_published_total",
		Help: "Listings inserted by the publish workflow",
	})

	ListingsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_listings_deleted_total",
		Help: "Listings deleted by admins",
	})

	// PhotoUploads counts per-file outcomes: uploaded, upload_failed, row_failed
	PhotoUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_photo_uploads_total",
			Help: "Photo upload attempts by outcome",
		},
		[]string{"outcome"},
	)

	// BlobRemoveFailures counts batch removals that failed and left orphaned blobs
	BlobRemoveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_blob_remove_failures_total",
		Help: "Failed blob batch removals during listing deletion",
	})

	// SessionResets counts sessions signed out because the role lookup failed
	SessionResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_session_resets_total",
		Help: "Sessions forcibly signed out after a failed role lookup",
	})

	DeleteLogsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_delete_logs_purged_total",
		Help: "Delete log entries removed by retention cleanup",
	})
)
