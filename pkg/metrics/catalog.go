package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache results recorded by CatalogMetrics.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
	CacheSkip = "skip"
)

// CatalogMetrics records catalog cache, upstream and order submission activity.
type CatalogMetrics struct {
	cache    *prometheus.CounterVec
	upstream *prometheus.CounterVec
	orders   *prometheus.CounterVec
	resolve  *prometheus.HistogramVec
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_total",
		Help: "Catalog cache lookups by result (hit, miss, skip).",
	}, []string{"result"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_attempts_total",
		Help: "Outbound HTTP attempts by target and outcome.",
	}, []string{"target", "outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presupuesto_submissions_total",
		Help: "Order submissions by result code.",
	}, []string{"result"})
	resolve := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_resolve_duration_seconds",
		Help:    "Time spent resolving a catalog from the upstream database.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	reg.MustRegister(cache, upstream, orders, resolve)
	return &CatalogMetrics{
		cache:    cache,
		upstream: upstream,
		orders:   orders,
		resolve:  resolve,
	}
}

// CacheResult counts one cache lookup.
func (m *CatalogMetrics) CacheResult(result string) {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues(normalizeLabel(result)).Inc()
}

// UpstreamObserver returns a per-attempt hook for the retrying HTTP client.
func (m *CatalogMetrics) UpstreamObserver(target string) func(outcome string) {
	return func(outcome string) {
		if m == nil || m.upstream == nil {
			return
		}
		m.upstream.WithLabelValues(normalizeLabel(target), normalizeLabel(outcome)).Inc()
	}
}

// OrderResult counts one order submission.
func (m *CatalogMetrics) OrderResult(result string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveResolve records how long an upstream catalog resolution took.
func (m *CatalogMetrics) ObserveResolve(duration time.Duration, err error) {
	if m == nil || m.resolve == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.resolve.WithLabelValues(status).Observe(duration.Seconds())
}
