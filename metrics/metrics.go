// Package metrics holds the Prometheus collectors shared by the connector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_openapi_remote_requests_total",
		Help: "Total number of requests sent to the remote REST service.",
	}, []string{"operation", "status"})

	RemoteRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airport_openapi_remote_request_duration_seconds",
		Help:    "Duration of requests to the remote REST service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airport_openapi_rate_limit_waits_total",
		Help: "Total number of remote requests delayed by the client rate limiter.",
	})

	MetadataCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airport_openapi_metadata_cache_hits_total",
		Help: "Total number of table descriptions served from the cache.",
	})

	MetadataCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airport_openapi_metadata_cache_misses_total",
		Help: "Total number of table descriptions loaded synchronously.",
	})

	MetadataCacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_openapi_metadata_cache_refreshes_total",
		Help: "Total number of background refreshes of table descriptions.",
	}, []string{"result"})

	MetadataCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airport_openapi_metadata_cache_entries",
		Help: "Number of table descriptions currently cached.",
	})

	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airport_openapi_pages_fetched_total",
		Help: "Total number of pages fetched from the remote service.",
	})

	RowsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airport_openapi_rows_fetched_total",
		Help: "Total number of rows decoded from fetched pages.",
	})

	BytesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airport_openapi_bytes_fetched_total",
		Help: "Total number of Arrow buffer bytes produced from fetched pages.",
	})

	PredicateColumnsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_openapi_predicate_columns_skipped_total",
		Help: "Total number of column constraints not pushed down to the remote service.",
	}, []string{"reason"})

	FlightStreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airport_openapi_flight_streams_active",
		Help: "Number of DoGet streams currently in progress.",
	})
)
