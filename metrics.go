package openke

import (
	"sync/atomic"
	"time"
)

// Operation names reported to a MetricsCollector and in log records.
const (
	OpID        = "id"
	OpVector    = "vector"
	OpAdjacency = "adjacency"
	OpScore     = "score"
	OpSubgraph  = "subgraph"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// the server package ships such an adapter.
type MetricsCollector interface {
	// RecordLookup is called after each strict or degrading lookup.
	// op is one of the Op constants, err is nil if the lookup hit.
	RecordLookup(op string, duration time.Duration, err error)

	// RecordFallback is called whenever a degrading lookup substitutes a
	// default value for a miss.
	RecordFallback(op string)

	// RecordSubgraph is called after each subgraph build.
	RecordSubgraph(triples, entities int, duration time.Duration, err error)

	// RecordLoad is called once after a dataset load attempt.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLookup(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordFallback(string)                         {}
func (NoopMetricsCollector) RecordSubgraph(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LookupCount      atomic.Int64
	LookupMisses     atomic.Int64
	LookupTotalNanos atomic.Int64
	FallbackCount    atomic.Int64
	SubgraphCount    atomic.Int64
	SubgraphErrors   atomic.Int64
	SubgraphTriples  atomic.Int64
	SubgraphEntities atomic.Int64
	SubgraphNanos    atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	LoadNanos        atomic.Int64
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(_ string, duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupMisses.Add(1)
	}
}

// RecordFallback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFallback(string) {
	b.FallbackCount.Add(1)
}

// RecordSubgraph implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSubgraph(triples, entities int, duration time.Duration, err error) {
	b.SubgraphCount.Add(1)
	b.SubgraphNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SubgraphErrors.Add(1)
		return
	}
	b.SubgraphTriples.Add(int64(triples))
	b.SubgraphEntities.Add(int64(entities))
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadNanos.Store(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LookupCount:      b.LookupCount.Load(),
		LookupMisses:     b.LookupMisses.Load(),
		LookupAvgNanos:   avg(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
		FallbackCount:    b.FallbackCount.Load(),
		SubgraphCount:    b.SubgraphCount.Load(),
		SubgraphErrors:   b.SubgraphErrors.Load(),
		SubgraphTriples:  b.SubgraphTriples.Load(),
		SubgraphEntities: b.SubgraphEntities.Load(),
		SubgraphAvgNanos: avg(b.SubgraphNanos.Load(), b.SubgraphCount.Load()),
		LoadCount:        b.LoadCount.Load(),
		LoadErrors:       b.LoadErrors.Load(),
		LastLoadNanos:    b.LoadNanos.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LookupCount      int64
	LookupMisses     int64
	LookupAvgNanos   int64
	FallbackCount    int64
	SubgraphCount    int64
	SubgraphErrors   int64
	SubgraphTriples  int64
	SubgraphEntities int64
	SubgraphAvgNanos int64
	LoadCount        int64
	LoadErrors       int64
	LastLoadNanos    int64
}
