package providers

import (
	"chathelper/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreStats is implemented by the persistent store so that gauge
// collectors can read counts without a dependency cycle.
type StoreStats interface {
	Buckets() int
	Snippets() int
}

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncStorageOps(op string)
	IncStoreConflicts()
	ObservePersistenceDuration(duration time.Duration)
	SetConnectedClients(count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	storageOps          *prometheus.CounterVec
	storeConflicts      prometheus.Counter
	persistenceDuration prometheus.Histogram
	connectedClients    prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncStorageOps(op string) {
	m.storageOps.WithLabelValues(op).Inc()
}

func (m *MetricsProvider) IncStoreConflicts() {
	m.storeConflicts.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetConnectedClients(count int) {
	m.connectedClients.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, stats StoreStats) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chathelper_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chathelper_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chathelper_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chathelper_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		storageOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chathelper_storage_ops_total",
			Help: "Total number of storage protocol operations",
		}, []string{"op"}),

		storeConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chathelper_store_conflicts_total",
			Help: "Total number of rejected stale store writes",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chathelper_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		connectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chathelper_connected_clients",
			Help: "Number of currently connected storage clients",
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chathelper_buckets_total",
		Help: "Total number of channel buckets in the store",
	}, func() float64 {
		return float64(stats.Buckets())
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chathelper_snippets_total",
		Help: "Total number of saved snippets across all buckets",
	}, func() float64 {
		return float64(stats.Snippets())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncStorageOps(_ string)                           {}
func (n *noopMetrics) IncStoreConflicts()                               {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) SetConnectedClients(_ int)                        {}
