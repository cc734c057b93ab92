package subgraph

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// Options configures a Builder.
type Options struct {
	// Concurrency bounds parallel vector fetches. Values below 2 fetch
	// sequentially, which is fastest for in-process sources.
	Concurrency int
}

// Builder assembles subgraphs from a Source. It holds no mutable state and
// is safe for concurrent use.
type Builder struct {
	src  Source
	opts Options
}

// NewBuilder returns a Builder reading from src.
func NewBuilder(src Source, optFns ...func(o *Options)) *Builder {
	opts := Options{Concurrency: 1}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Builder{src: src, opts: opts}
}

// Build renumbers triples, fetches their embeddings and labels the entities
// named by answerKeys.
//
// Answer keys that do not resolve are dropped and counted in
// Graph.DroppedAnswers. The only error is ctx cancellation.
func (b *Builder) Build(ctx context.Context, triples []model.Triple, answerKeys []string) (*Graph, error) {
	g := &Graph{
		Edges:         make([]Edge, len(triples)),
		EdgeRelations: make([]int, len(triples)),
	}

	entityLocal := make(map[model.ID]int)
	relationLocal := make(map[model.ID]int)
	local := func(id model.ID) int {
		l, ok := entityLocal[id]
		if !ok {
			l = len(g.Entities)
			entityLocal[id] = l
			g.Entities = append(g.Entities, id)
		}
		return l
	}

	for i, t := range triples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := local(t.Subject)
		o := local(t.Object)
		r, ok := relationLocal[t.Predicate]
		if !ok {
			r = len(g.Relations)
			relationLocal[t.Predicate] = r
			g.Relations = append(g.Relations, t.Predicate)
		}
		g.Edges[i] = Edge{Source: s, Target: o}
		g.EdgeRelations[i] = r
	}

	g.EntityEmbeddings = NewMatrix(len(g.Entities), b.src.EntityDimension())
	if err := b.fill(ctx, g.EntityEmbeddings, g.Entities, b.src.EntityVectorByID); err != nil {
		return nil, err
	}

	// One fetch per distinct relation, then one row per edge.
	relations := NewMatrix(len(g.Relations), b.src.RelationDimension())
	if err := b.fill(ctx, relations, g.Relations, b.src.RelationVectorByID); err != nil {
		return nil, err
	}
	g.EdgeEmbeddings = NewMatrix(len(triples), b.src.RelationDimension())
	for i, r := range g.EdgeRelations {
		copy(g.EdgeEmbeddings.Row(i), relations.Row(r))
	}

	answers := roaring.New()
	for _, key := range answerKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := b.src.EntityIDByKey(ctx, key)
		if !id.Valid() {
			g.DroppedAnswers++
			continue
		}
		answers.Add(uint32(id))
	}

	g.local = entityLocal
	g.Labels = make([]uint8, len(g.Entities))
	it := answers.Iterator()
	for it.HasNext() {
		if l, ok := g.LocalID(model.ID(it.Next())); ok {
			g.Labels[l] = 1
		}
	}
	return g, nil
}

// BuildFromSeeds expands seed entities by one hop in direction dir and
// builds the subgraph of the triples found. The source must implement
// Expander.
func (b *Builder) BuildFromSeeds(ctx context.Context, seedKeys []string, dir model.Direction, answerKeys []string) (*Graph, error) {
	x, ok := b.src.(Expander)
	if !ok {
		return nil, ErrNoExpander
	}
	triples := x.AdjacencyByKeys(ctx, seedKeys, dir)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Build(ctx, triples, answerKeys)
}

// fill writes the vector of ids[i] into row i of m.
func (b *Builder) fill(ctx context.Context, m Matrix, ids []model.ID, fetch func(context.Context, model.ID) []float32) error {
	if b.opts.Concurrency < 2 {
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			copy(m.Row(i), fetch(ctx, id))
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			copy(m.Row(i), fetch(gctx, id))
			return nil
		})
	}
	return g.Wait()
}

// Renumber assigns consecutive local ids to the entities of triples in
// first-occurrence order and returns the local subject and object of each
// triple.
func Renumber(triples []model.Triple) (subjects, objects []int) {
	seen := make(map[model.ID]int)
	local := func(id model.ID) int {
		l, ok := seen[id]
		if !ok {
			l = len(seen)
			seen[id] = l
		}
		return l
	}
	subjects = make([]int, len(triples))
	objects = make([]int, len(triples))
	for i, t := range triples {
		subjects[i] = local(t.Subject)
		objects[i] = local(t.Object)
	}
	return subjects, objects
}

// TripleEmbeddings returns, for each triple, its subject, object and
// predicate vectors as three row-aligned matrices.
func TripleEmbeddings(ctx context.Context, src Source, triples []model.Triple) (subjects, objects, predicates Matrix, err error) {
	ed, rd := src.EntityDimension(), src.RelationDimension()
	subjects = NewMatrix(len(triples), ed)
	objects = NewMatrix(len(triples), ed)
	predicates = NewMatrix(len(triples), rd)
	for i, t := range triples {
		if err := ctx.Err(); err != nil {
			return Matrix{}, Matrix{}, Matrix{}, err
		}
		copy(subjects.Row(i), src.EntityVectorByID(ctx, t.Subject))
		copy(objects.Row(i), src.EntityVectorByID(ctx, t.Object))
		copy(predicates.Row(i), src.RelationVectorByID(ctx, t.Predicate))
	}
	return subjects, objects, predicates, nil
}
