package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Snapshot replication counters, labeled by aggregate domain
	// (products, categories, inventory).
	SnapshotEventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_events_consumed_total",
		Help: "Snapshot events applied to the local cache",
	}, []string{"domain"})

	SnapshotEventsIgnoredStale = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_events_ignored_stale_total",
		Help: "Snapshot events dropped because the cached version was newer or equal",
	}, []string{"domain"})

	SnapshotEventsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_events_duplicate_total",
		Help: "Snapshot events dropped because the event id was already processed",
	}, []string{"domain"})

	SnapshotEventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_events_failed_total",
		Help: "Snapshot events that could not be applied",
	}, []string{"domain"})

	SnapshotCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_cache_hits_total",
		Help: "Snapshot reads served from the local cache",
	}, []string{"domain"})

	SnapshotFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_fallbacks_total",
		Help: "Snapshot reads that fell back to a stale or sentinel snapshot",
	}, []string{"domain"})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Orders confirmed at creation or via retry",
	})

	OrdersDeferredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deferred_total",
		Help: "Orders persisted as PENDING_RETRY after a technical reservation failure",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Order requests rejected before persistence",
	}, []string{"reason"})

	OrdersDeadLetterTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_dead_letter_total",
		Help: "Deferred orders abandoned after exhausting the retry budget",
	})

	RetrySweepProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_sweep_processed_total",
		Help: "Retry queue entries handled per outcome",
	}, []string{"outcome"})

	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_publish_failures_total",
		Help: "Event publishes that failed after the owning write succeeded",
	}, []string{"event_type"})

	ReservationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reservation_latency_seconds",
		Help:    "Latency of the synchronous reservation call, retries included",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
