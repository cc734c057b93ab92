package client

import (
	"context"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/subgraph"
)

var _ subgraph.Expander = (*Fallback)(nil)

// Fallback is the degrading view of a Client. Its lookups never fail.
// Transport failures are logged as warnings; misses at debug level. Both
// are reported through MetricsCollector.RecordFallback.
type Fallback struct {
	c *Client
}

func (f *Fallback) miss(ctx context.Context, op string, err error) {
	f.c.metrics.RecordFallback(op)
	if IsTransport(err) {
		f.c.logger.WarnContext(ctx, "server unreachable, using fallback",
			"op", op,
			"error", err,
		)
		return
	}
	f.c.logger.LogMiss(ctx, op, err)
}

// EntityDimension returns the entity vector width.
func (f *Fallback) EntityDimension() int { return f.c.entityDim }

// RelationDimension returns the relation vector width.
func (f *Fallback) RelationDimension() int { return f.c.relationDim }

// IDByKey resolves key, or returns model.InvalidID.
func (f *Fallback) IDByKey(ctx context.Context, kind model.Kind, key string) model.ID {
	id, err := f.c.IDByKey(ctx, kind, key)
	if err != nil {
		f.miss(ctx, openke.OpID, err)
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
	vec, err := f.c.VectorByID(ctx, kind, id)
	if err != nil {
		f.miss(ctx, openke.OpVector, err)
		return make([]float32, f.c.dimension(kind))
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

// VectorByKey returns the vector of key, or zeros.
func (f *Fallback) VectorByKey(ctx context.Context, kind model.Kind, key string) []float32 {
	vec, err := f.c.VectorByKey(ctx, kind, key)
	if err != nil {
		f.miss(ctx, openke.OpVector, err)
		return make([]float32, f.c.dimension(kind))
	}
	return vec
}

// EntityVectorByKey returns the entity vector of key, or zeros.
func (f *Fallback) EntityVectorByKey(ctx context.Context, key string) []float32 {
	return f.VectorByKey(ctx, model.Entity, key)
}

// Adjacency returns the triples incident to key, or an empty list.
func (f *Fallback) Adjacency(ctx context.Context, key string, dir model.Direction) []model.Triple {
	triples, err := f.c.Adjacency(ctx, key, dir)
	if err != nil {
		f.miss(ctx, openke.OpAdjacency, err)
		return []model.Triple{}
	}
	if triples == nil {
		return []model.Triple{}
	}
	return triples
}

// VectorsByKeys returns one entity vector per key; the server substitutes
// zeros for misses. An unreachable server yields zeros for every key.
func (f *Fallback) VectorsByKeys(ctx context.Context, keys []string) [][]float32 {
	vecs, err := f.c.vectorsByKeys(ctx, keys, false)
	if err != nil {
		f.miss(ctx, openke.OpVector, err)
		vecs = make([][]float32, len(keys))
		for i := range vecs {
			vecs[i] = make([]float32, f.c.entityDim)
		}
	}
	return vecs
}

// AdjacencyByKeys concatenates the triples of every key. Unknown keys
// contribute nothing.
func (f *Fallback) AdjacencyByKeys(ctx context.Context, keys []string, dir model.Direction) []model.Triple {
	triples, err := f.c.adjacencyByKeys(ctx, keys, dir, false)
	if err != nil {
		f.miss(ctx, openke.OpAdjacency, err)
		return []model.Triple{}
	}
	if triples == nil {
		return []model.Triple{}
	}
	return triples
}

// ScoreTriple returns the server's degrading score for t, or 0 when the
// server cannot be reached.
func (f *Fallback) ScoreTriple(ctx context.Context, t model.Triple) float32 {
	score, err := f.c.scoreTriple(ctx, t, false)
	if err != nil {
		f.miss(ctx, openke.OpScore, err)
		return 0
	}
	return score
}
