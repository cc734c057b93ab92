package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
)

const namespace = "openke"

// PrometheusCollector implements openke.MetricsCollector and records HTTP
// request metrics.
type PrometheusCollector struct {
	lookups          *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	subgraphs        *prometheus.HistogramVec
	subgraphEntities prometheus.Histogram
	loadSeconds      prometheus.Gauge
	loadErrors       prometheus.Counter
	requests         *prometheus.HistogramVec
	inflight         prometheus.Gauge
	rejected         *prometheus.CounterVec
}

// NewPrometheusCollector creates the collectors and registers them with reg.
// A nil reg selects prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		lookups: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Latency of id, vector, adjacency and score lookups",
			Buckets:   []float64{1e-7, 1e-6, 1e-5, 1e-4, 1e-3, 1e-2},
		}, []string{"op", "status"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Lookups answered with a substituted default",
		}, []string{"op"}),
		subgraphs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "subgraph_duration_seconds",
			Help:      "Latency of subgraph builds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		subgraphEntities: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "subgraph_entities",
			Help:      "Entities per built subgraph",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		loadSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of the last dataset load",
		}),
		loadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Failed dataset loads",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Admitted HTTP requests being served",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_rejected_total",
			Help:      "Requests rejected before being served",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.lookups,
		c.fallbacks,
		c.subgraphs,
		c.subgraphEntities,
		c.loadSeconds,
		c.loadErrors,
		c.requests,
		c.inflight,
		c.rejected,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordLookup implements openke.MetricsCollector.
func (c *PrometheusCollector) RecordLookup(op string, d time.Duration, err error) {
	s := "hit"
	if err != nil {
		s = "miss"
	}
	c.lookups.WithLabelValues(op, s).Observe(d.Seconds())
}

// RecordFallback implements openke.MetricsCollector.
func (c *PrometheusCollector) RecordFallback(op string) {
	c.fallbacks.WithLabelValues(op).Inc()
}

// RecordSubgraph implements openke.MetricsCollector.
func (c *PrometheusCollector) RecordSubgraph(_, entities int, d time.Duration, err error) {
	c.subgraphs.WithLabelValues(status(err)).Observe(d.Seconds())
	if err == nil {
		c.subgraphEntities.Observe(float64(entities))
	}
}

// RecordLoad implements openke.MetricsCollector.
func (c *PrometheusCollector) RecordLoad(d time.Duration, err error) {
	c.loadSeconds.Set(d.Seconds())
	if err != nil {
		c.loadErrors.Inc()
	}
}

func (c *PrometheusCollector) recordRequest(route string, code int, d time.Duration) {
	c.requests.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}

func (c *PrometheusCollector) recordRejected(reason string) {
	c.rejected.WithLabelValues(reason).Inc()
}

var _ openke.MetricsCollector = (*PrometheusCollector)(nil)
