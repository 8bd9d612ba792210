package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BillsSaved counts bills written, labelled by store (local, remote)
	BillsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bills_saved_total",
			Help: "Bills written to a store",
		},
		[]string{"store"},
	)

	RemoteSyncFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bills_remote_sync_failures_total",
			Help: "Remote mirror writes that failed after a successful local save",
		},
	)

	// ShareResolutions counts share-link lookups by where the bill was found
	ShareResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "share_resolutions_total",
			Help: "Share link resolutions by source",
		},
		[]string{"source"},
	)

	// OrderForwards counts Yaadro forwards by outcome
	OrderForwards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yaadro_order_forwards_total",
			Help: "Orders forwarded to Yaadro by outcome",
		},
		[]string{"outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bill_cache_lookups_total",
			Help: "Redis bill cache lookups by result",
		},
		[]string{"result"},
	)
)
