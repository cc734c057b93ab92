package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/codec"
)

// Default server settings.
const (
	DefaultAddr           = ":8000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxBodyBytes   = 8 << 20
	DefaultShutdownGrace  = 10 * time.Second
)

type options struct {
	addr           string
	maxInFlight    int64
	rps            float64
	burst          int
	requestTimeout time.Duration
	maxBodyBytes   int64
	shutdownGrace  time.Duration
	codec          codec.Codec
	logger         *openke.Logger
	collector      *PrometheusCollector
	gatherer       prometheus.Gatherer
}

// Option configures a Server.
type Option func(*options)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *options) {
		o.addr = addr
	}
}

// WithMaxInFlight bounds concurrently served requests. Zero means unlimited.
func WithMaxInFlight(n int64) Option {
	return func(o *options) {
		o.maxInFlight = n
	}
}

// WithRateLimit bounds the sustained request rate. Zero means unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithRequestTimeout bounds the time a request may wait for admission and
// run.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = d
	}
}

// WithMaxBodyBytes bounds request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		o.maxBodyBytes = n
	}
}

// WithShutdownGrace bounds how long ListenAndServe waits for in-flight
// requests after its context is done.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *options) {
		o.shutdownGrace = d
	}
}

// WithCodec sets the body codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger sets the request logger. Defaults to the service's logger.
func WithLogger(logger *openke.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPrometheus records HTTP metrics on c and serves gatherer at /metrics.
// A nil gatherer selects prometheus.DefaultGatherer.
func WithPrometheus(c *PrometheusCollector, gatherer prometheus.Gatherer) Option {
	return func(o *options) {
		o.collector = c
		o.gatherer = gatherer
	}
}
