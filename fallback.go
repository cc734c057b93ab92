package openke

import (
	"context"
	"time"

	"github.com/lzw429/OpenKE-Embedding-Service/metric"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// Fallback is the degrading view of a Service. Its lookups never fail:
//   - id misses yield model.InvalidID,
//   - vector misses yield a fresh zero vector of the space's dimension,
//   - adjacency misses yield an empty, non-nil triple list.
//
// Every substitution is logged at debug level and reported through
// MetricsCollector.RecordFallback. Fallback implements subgraph.Expander.
type Fallback struct {
	s *Service
}

func (f *Fallback) miss(ctx context.Context, op string, kind model.Kind, err error) {
	f.s.metrics.RecordFallback(op)
	f.s.logger.WithKind(kind).LogMiss(ctx, op, err)
}

// EntityDimension returns the entity vector width.
func (f *Fallback) EntityDimension() int { return f.s.Dimension(model.Entity) }

// RelationDimension returns the relation vector width.
func (f *Fallback) RelationDimension() int { return f.s.Dimension(model.Relation) }

// IDByKey resolves key, or returns model.InvalidID.
func (f *Fallback) IDByKey(ctx context.Context, kind model.Kind, key string) model.ID {
	start := time.Now()
	id, err := f.s.idByKey(kind, key)
	f.s.observe(OpID, start, err)
	if err != nil {
		f.miss(ctx, OpID, kind, err)
		return model.InvalidID
	}
	return id
}

// EntityIDByKey resolves an entity key, or returns model.InvalidID.
func (f *Fallback) EntityIDByKey(ctx context.Context, key string) model.ID {
	return f.IDByKey(ctx, model.Entity, key)
}

// RelationIDByKey resolves a relation key, or returns model.InvalidID.
func (f *Fallback) RelationIDByKey(ctx context.Context, key string) model.ID {
	return f.IDByKey(ctx, model.Relation, key)
}

// VectorByID returns the vector of id, or zeros.
func (f *Fallback) VectorByID(ctx context.Context, kind model.Kind, id model.ID) []float32 {
	start := time.Now()
	vec, err := f.s.vectorByID(kind, id)
	f.s.observe(OpVector, start, err)
	if err != nil {
		f.miss(ctx, OpVector, kind, err)
		return make([]float32, f.s.Dimension(kind))
	}
	return vec
}

// EntityVectorByID returns the entity vector of id, or zeros.
func (f *Fallback) EntityVectorByID(ctx context.Context, id model.ID) []float32 {
	return f.VectorByID(ctx, model.Entity, id)
}

// RelationVectorByID returns the relation vector of id, or zeros.
func (f *Fallback) RelationVectorByID(ctx context.Context, id model.ID) []float32 {
	return f.VectorByID(ctx, model.Relation, id)
}

// VectorByKey resolves key and returns its vector, or zeros.
func (f *Fallback) VectorByKey(ctx context.Context, kind model.Kind, key string) []float32 {
	start := time.Now()
	vec, err := f.s.vectorByKey(kind, key)
	f.s.observe(OpVector, start, err)
	if err != nil {
		f.miss(ctx, OpVector, kind, err)
		return make([]float32, f.s.Dimension(kind))
	}
	return vec
}

// Adjacency returns the triples incident to key, or an empty list.
func (f *Fallback) Adjacency(ctx context.Context, key string, dir model.Direction) []model.Triple {
	start := time.Now()
	triples, err := f.s.adjacency(key, dir)
	f.s.observe(OpAdjacency, start, err)
	if err != nil {
		f.miss(ctx, OpAdjacency, model.Entity, err)
		return []model.Triple{}
	}
	if triples == nil {
		return []model.Triple{}
	}
	return triples
}

// VectorsByKeys returns one vector per key in input order, zeros for misses.
func (f *Fallback) VectorsByKeys(ctx context.Context, kind model.Kind, keys []string) [][]float32 {
	out := make([][]float32, len(keys))
	for i, key := range keys {
		out[i] = f.VectorByKey(ctx, kind, key)
	}
	return out
}

// AdjacencyByKeys concatenates the triples of every key in input-key order.
// Unknown keys contribute nothing.
func (f *Fallback) AdjacencyByKeys(ctx context.Context, keys []string, dir model.Direction) []model.Triple {
	out := []model.Triple{}
	for _, key := range keys {
		out = append(out, f.Adjacency(ctx, key, dir)...)
	}
	return out
}

// ScoreTriple returns the TransE distance of t with zero vectors standing
// in for unknown ids. It returns 0 when entity and relation vectors differ
// in width.
func (f *Fallback) ScoreTriple(ctx context.Context, t model.Triple) float32 {
	h := f.EntityVectorByID(ctx, t.Subject)
	r := f.RelationVectorByID(ctx, t.Predicate)
	tail := f.EntityVectorByID(ctx, t.Object)
	score, err := metric.TransE(h, r, tail, f.s.norm)
	if err != nil {
		f.miss(ctx, OpScore, model.Relation, err)
		return 0
	}
	return score
}
