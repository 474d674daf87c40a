// Package metrics AI 操作与 HTTP 请求的 Prometheus 指标
// Package metrics holds the Prometheus collectors for AI operations and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace 指标名前缀 / metric name prefix
const Namespace = "lumina"

// Collector 持有独立 registry，多个实例互不冲突
// Collector owns its own registry, so several instances can coexist (tests, embedded servers).
type Collector struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
	chatChunks   prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "ai_operations_total",
				Help:      "AI operations by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "ai_operation_duration_seconds",
				Help:      "AI operation latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		chatChunks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "chat_chunks_total",
				Help:      "Streamed chat chunks applied to the history",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.operations,
		c.opDuration,
		c.chatChunks,
		c.httpRequests,
		c.httpDuration,
		collectors.NewGoCollector(),
	)
	return c
}

// ObserveOperation 记录一次 AI 操作结果；被拒绝的请求不计入延迟
// ObserveOperation records one AI operation outcome. Rejected triggers never
// reached the gateway and are left out of the latency histogram.
func (c *Collector) ObserveOperation(kind, status string, elapsed time.Duration) {
	c.operations.WithLabelValues(kind, status).Inc()
	if status != "rejected" {
		c.opDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

func (c *Collector) ObserveChatChunk() {
	c.chatChunks.Inc()
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry 返回底层 registry / returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 暴露 /metrics / serves the registry in the exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
