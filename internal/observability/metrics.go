// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Event metrics
	EventsReceived   *prometheus.CounterVec
	EventsDispatched *prometheus.CounterVec
	EventErrors      *prometheus.CounterVec
	HighestBlockSeen prometheus.Gauge

	// Cache metrics
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	CacheRefetch  *prometheus.HistogramVec
	Invalidations *prometheus.CounterVec

	// Read proxy metrics
	ContractReadErrors *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Fan-out metrics
	BroadcastClients prometheus.Gauge
	BroadcastDropped prometheus.Counter
	RelayPublished   *prometheus.CounterVec
	RelayErrors      *prometheus.CounterVec
	MetadataFallback prometheus.Counter

	// Transaction metrics
	TransactionsSent *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastEventTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "auction_relay"
	}

	return &Metrics{
		// Event metrics
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "received_total",
			Help:      "Total number of contract logs received by source",
		}, []string{"source"}),
		EventsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Total number of decoded events dispatched by kind",
		}, []string{"kind"}),
		EventErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "errors_total",
			Help:      "Total number of event processing errors by stage",
		}, []string{"stage"}),
		HighestBlockSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "highest_block_seen",
			Help:      "Highest block number seen in a contract log",
		}),

		// Cache metrics
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Snapshot cache hits by endpoint",
		}, []string{"endpoint"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Snapshot cache misses by endpoint",
		}, []string{"endpoint"}),
		CacheRefetch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refetch_duration_seconds",
			Help:      "Duration of coalesced refetches in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Invalidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Cache invalidations by trigger",
		}, []string{"trigger"}),

		// Read proxy metrics
		ContractReadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "contract_read_errors_total",
			Help:      "Failed contract view calls by method",
		}, []string{"method"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ethereum RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Fan-out metrics
		BroadcastClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "clients",
			Help:      "Connected browser websocket clients",
		}),
		BroadcastDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "dropped_clients_total",
			Help:      "Clients dropped because their send buffer was full",
		}),
		RelayPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "published_total",
			Help:      "Events published by relay backend",
		}, []string{"backend"}),
		RelayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "errors_total",
			Help:      "Relay publish failures by backend",
		}, []string{"backend"}),
		MetadataFallback: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "placeholder_total",
			Help:      "Metadata fetches that degraded to the placeholder",
		}),

		// Transaction metrics
		TransactionsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operator",
			Name:      "transactions_total",
			Help:      "Transactions submitted by method and status",
		}, []string{"method", "status"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastEventTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last dispatched contract event",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived counts a raw log from source ("ws" or "poll").
func RecordEventReceived(source string) {
	DefaultMetrics.EventsReceived.WithLabelValues(source).Inc()
}

// RecordEventDispatched counts a decoded event and updates health gauges.
func RecordEventDispatched(kind string, block uint64, unixSeconds int64) {
	DefaultMetrics.EventsDispatched.WithLabelValues(kind).Inc()
	DefaultMetrics.LastEventTimestamp.Set(float64(unixSeconds))
	UpdateHighestBlock(block)
}

// RecordEventError records an event processing error.
func RecordEventError(stage string) {
	DefaultMetrics.EventErrors.WithLabelValues(stage).Inc()
}

var highestBlock atomic.Uint64

// UpdateHighestBlock raises the highest block gauge. Lower values are ignored.
func UpdateHighestBlock(block uint64) {
	for {
		cur := highestBlock.Load()
		if block <= cur {
			return
		}
		if highestBlock.CompareAndSwap(cur, block) {
			DefaultMetrics.HighestBlockSeen.Set(float64(block))
			return
		}
	}
}

// RecordCacheHit records a fresh cache read.
func RecordCacheHit(endpoint string) {
	DefaultMetrics.CacheHits.WithLabelValues(endpoint).Inc()
}

// RecordCacheMiss records a refetch and its duration.
func RecordCacheMiss(endpoint string, seconds float64) {
	DefaultMetrics.CacheMisses.WithLabelValues(endpoint).Inc()
	DefaultMetrics.CacheRefetch.WithLabelValues(endpoint).Observe(seconds)
}

// RecordInvalidation records a cache invalidation trigger.
func RecordInvalidation(trigger string) {
	DefaultMetrics.Invalidations.WithLabelValues(trigger).Inc()
}

// RecordContractReadError records a failed view call.
func RecordContractReadError(method string) {
	DefaultMetrics.ContractReadErrors.WithLabelValues(method).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSMessage records websocket message handling latency.
func RecordWSMessage(seconds float64) {
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}

// SetBroadcastClients sets the connected client gauge.
func SetBroadcastClients(n int) {
	DefaultMetrics.BroadcastClients.Set(float64(n))
}

// RecordBroadcastDrop counts a dropped slow client.
func RecordBroadcastDrop() {
	DefaultMetrics.BroadcastDropped.Inc()
}

// RecordRelayPublish records a relay publish outcome.
func RecordRelayPublish(backend string, err error) {
	if err != nil {
		DefaultMetrics.RelayErrors.WithLabelValues(backend).Inc()
		return
	}
	DefaultMetrics.RelayPublished.WithLabelValues(backend).Inc()
}

// RecordMetadataFallback counts a placeholder served for metadata.
func RecordMetadataFallback() {
	DefaultMetrics.MetadataFallback.Inc()
}

// RecordTransaction records a submitted transaction.
func RecordTransaction(method, status string) {
	DefaultMetrics.TransactionsSent.WithLabelValues(method, status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
