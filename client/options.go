package client

import (
	"net/http"
	"time"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/codec"
)

// Default client settings.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryCount = 2
	DefaultCacheSize  = 1024
)

type options struct {
	timeout     time.Duration
	retries     int
	cacheSize   int
	entityDim   int
	relationDim int
	httpClient  *http.Client
	codec       codec.Codec
	logger      *openke.Logger
	metrics     openke.MetricsCollector
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRetryCount sets how often a request is retried after a transport
// error or a 503 response.
func WithRetryCount(n int) Option {
	return func(o *options) {
		o.retries = n
	}
}

// WithCacheSize sets the capacity of each vector cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithDimensions fixes the entity and relation widths. When unset, New asks
// the server.
func WithDimensions(entity, relation int) Option {
	return func(o *options) {
		o.entityDim = entity
		o.relationDim = relation
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
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

// WithLogger sets the logger for degraded calls.
func WithLogger(logger *openke.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector sets the collector for lookups and fallbacks.
func WithMetricsCollector(mc openke.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}
