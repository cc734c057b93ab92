package openke

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/lzw429/OpenKE-Embedding-Service/internal/mmap"
	"github.com/lzw429/OpenKE-Embedding-Service/metric"
)

// DefaultDimension is the embedding width OpenKE exports by default.
const DefaultDimension = 50

// AccessPattern is a paging hint applied to the vector mappings.
type AccessPattern = mmap.AccessPattern

// Paging hints accepted by WithAccessPattern.
const (
	AccessDefault    = mmap.AccessDefault
	AccessSequential = mmap.AccessSequential
	AccessRandom     = mmap.AccessRandom
	AccessWillNeed   = mmap.AccessWillNeed
)

// ParseAccessPattern parses "default", "sequential", "random" or "willneed".
func ParseAccessPattern(s string) (AccessPattern, error) {
	return mmap.ParseAccessPattern(s)
}

// Layout names the five dataset files relative to the source root.
type Layout struct {
	EntityVectors   string
	RelationVectors string
	EntityIDs       string
	RelationIDs     string
	Triples         string
}

// DefaultLayout returns the directory layout OpenKE produces for a TransE
// model of the given dimension.
func DefaultLayout(dim int) Layout {
	base := path.Join("embeddings", fmt.Sprintf("dimension_%d", dim), "transe")
	return Layout{
		EntityVectors:   path.Join(base, "entity2vec.bin"),
		RelationVectors: path.Join(base, "relation2vec.bin"),
		EntityIDs:       path.Join("knowledge_graphs", "entity2id.txt"),
		RelationIDs:     path.Join("knowledge_graphs", "relation2id.txt"),
		Triples:         path.Join("knowledge_graphs", "triple2id.txt"),
	}
}

type options struct {
	entityDim        int
	relationDim      int
	layout           *Layout
	prefixes         []string
	access           AccessPattern
	norm             metric.Norm
	readLimit        int64
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open and New.
type Option func(*options)

// WithDimension sets the width of both entity and relation vectors.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.entityDim = dim
		o.relationDim = dim
	}
}

// WithEntityDimension sets the width of entity vectors only.
func WithEntityDimension(dim int) Option {
	return func(o *options) {
		o.entityDim = dim
	}
}

// WithRelationDimension sets the width of relation vectors only.
func WithRelationDimension(dim int) Option {
	return func(o *options) {
		o.relationDim = dim
	}
}

// WithLayout overrides the dataset file names.
// Without it, DefaultLayout of the entity dimension is used.
func WithLayout(layout Layout) Option {
	return func(o *options) {
		o.layout = &layout
	}
}

// WithNamespacePrefixes sets the prefixes stripped from keys.
// An empty, non-nil slice disables stripping.
func WithNamespacePrefixes(prefixes ...string) Option {
	return func(o *options) {
		if prefixes == nil {
			prefixes = []string{}
		}
		o.prefixes = prefixes
	}
}

// WithAccessPattern sets the paging hint for both vector mappings.
func WithAccessPattern(pattern AccessPattern) Option {
	return func(o *options) {
		o.access = pattern
	}
}

// WithScoreNorm selects the norm used by ScoreTriple.
func WithScoreNorm(norm metric.Norm) Option {
	return func(o *options) {
		o.norm = norm
	}
}

// WithReadLimit caps the bytes per second streamed from the source while
// parsing tables. Zero means unlimited.
func WithReadLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.readLimit = bytesPerSec
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &openke.BasicMetricsCollector{}
//	svc, _ := openke.Open(ctx, openke.Local(dir), openke.WithMetricsCollector(metrics))
//	// ... use svc ...
//	stats := metrics.GetStats()
//	fmt.Printf("Lookups: %d, misses: %d\n", stats.LookupCount, stats.LookupMisses)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := openke.NewJSONLogger(slog.LevelInfo)
//	svc, _ := openke.Open(ctx, openke.Local(dir), openke.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		entityDim:        DefaultDimension,
		relationDim:      DefaultDimension,
		access:           AccessRandom,
		norm:             metric.L2,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) resolvedLayout() Layout {
	if o.layout != nil {
		return *o.layout
	}
	return DefaultLayout(o.entityDim)
}
