package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ExecutorMetrics is the per-execution counter snapshot. Counters are
// monotonic within one Execute call and reset on the next.
type ExecutorMetrics struct {
	TotalDuration time.Duration
	NodesExecuted int
	NodesSkipped  int
	CacheHits     int
	CacheMisses   int
}

// PrometheusMetrics exports execution metrics for scraping. All
// metrics are namespaced "logicgraph":
//
//   - inflight_nodes (gauge): nodes currently executing.
//   - node_latency_ms (histogram; run_id, node_id, status): dispatch
//     to completion latency. Status is success or error.
//   - cache_hits_total / cache_misses_total (counters; run_id).
//   - retries_total (counter; run_id, node_id).
//   - fallbacks_total (counter; run_id, node_id).
//
// Register against a private registry in tests to avoid duplicate
// registration panics:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	exec := graph.NewExecutor(graph.WithPrometheus(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	inflightNodes prometheus.Gauge
	nodeLatency   *prometheus.HistogramVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	retries       *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the metric set with the
// given registry. A nil registry uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "logicgraph",
			Name:      "inflight_nodes",
			Help:      "Number of nodes currently executing",
		}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "logicgraph",
			Name:      "node_latency_ms",
			Help:      "Node execution latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"run_id", "node_id", "status"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logicgraph",
			Name:      "cache_hits_total",
			Help:      "Result cache hits during graph execution",
		}, []string{"run_id"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logicgraph",
			Name:      "cache_misses_total",
			Help:      "Result cache misses during graph execution",
		}, []string{"run_id"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logicgraph",
			Name:      "retries_total",
			Help:      "Retry attempts recorded by RetryNode executions",
		}, []string{"run_id", "node_id"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logicgraph",
			Name:      "fallbacks_total",
			Help:      "Node failures absorbed by the fallback handler",
		}, []string{"run_id", "node_id"}),
	}
}

// RecordNodeLatency observes one node execution.
func (pm *PrometheusMetrics) RecordNodeLatency(runID, nodeID string, latency time.Duration, status string) {
	if pm == nil {
		return
	}
	pm.nodeLatency.WithLabelValues(runID, nodeID, status).Observe(float64(latency.Milliseconds()))
}

// IncCacheHit and IncCacheMiss record cache consults.
func (pm *PrometheusMetrics) IncCacheHit(runID string) {
	if pm == nil {
		return
	}
	pm.cacheHits.WithLabelValues(runID).Inc()
}

// IncCacheMiss records a cache miss.
func (pm *PrometheusMetrics) IncCacheMiss(runID string) {
	if pm == nil {
		return
	}
	pm.cacheMisses.WithLabelValues(runID).Inc()
}

// IncRetry records one retry attempt for a node.
func (pm *PrometheusMetrics) IncRetry(runID, nodeID string) {
	if pm == nil {
		return
	}
	pm.retries.WithLabelValues(runID, nodeID).Inc()
}

// IncFallback records a failure absorbed by the fallback handler.
func (pm *PrometheusMetrics) IncFallback(runID, nodeID string) {
	if pm == nil {
		return
	}
	pm.fallbacks.WithLabelValues(runID, nodeID).Inc()
}

// AddInflight adjusts the inflight gauge by delta.
func (pm *PrometheusMetrics) AddInflight(delta float64) {
	if pm == nil {
		return
	}
	pm.inflightNodes.Add(delta)
}
