// Package adjacency indexes the triples of a knowledge graph by subject
// (forward) and by object (inverse).
//
// The index is built once from the full triple list and never changes
// afterwards. Buckets keep source order; identical triples are kept as many
// times as they occur.
package adjacency

import (
	"fmt"
	"io"

	"github.com/lzw429/OpenKE-Embedding-Service/internal/conv"
	"github.com/lzw429/OpenKE-Embedding-Service/internal/table"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// Stats describes a triple-table load.
type Stats struct {
	// Rows is the number of accepted triples.
	Rows int
	// Malformed is the number of skipped lines.
	Malformed int
}

// Index maps entity ids to their incident triples.
type Index struct {
	forward  map[model.ID][]model.Triple
	inverse  map[model.ID][]model.Triple
	count    int
	entities int
}

// Builder accumulates triples for an Index. It is not safe for concurrent use.
type Builder struct {
	idx *Index
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{idx: &Index{
		forward: make(map[model.ID][]model.Triple),
		inverse: make(map[model.ID][]model.Triple),
	}}
}

// Add appends t to the forward bucket of its subject and the inverse bucket
// of its object.
func (b *Builder) Add(t model.Triple) {
	b.idx.forward[t.Subject] = append(b.idx.forward[t.Subject], t)
	b.idx.inverse[t.Object] = append(b.idx.inverse[t.Object], t)
	b.idx.count++
}

// Build returns the finished Index. The Builder must not be used afterwards.
func (b *Builder) Build() *Index {
	idx := b.idx
	b.idx = nil
	idx.entities = len(idx.forward)
	for id := range idx.inverse {
		if _, ok := idx.forward[id]; !ok {
			idx.entities++
		}
	}
	return idx
}

// Build indexes triples in order.
func Build(triples []model.Triple) *Index {
	b := NewBuilder()
	for _, t := range triples {
		b.Add(t)
	}
	return b.Build()
}

// Load builds an Index from a three-column "subject object predicate" table.
func Load(r io.Reader) (*Index, Stats, error) {
	b := NewBuilder()
	ts, err := table.Scan(r, 3, func(_ int, fields []string) error {
		t, err := parseTriple(fields)
		if err != nil {
			return table.Malformed(err)
		}
		b.Add(t)
		return nil
	})
	stats := Stats{Rows: ts.Rows, Malformed: ts.Malformed}
	if err != nil {
		return nil, stats, fmt.Errorf("adjacency: %w", err)
	}
	return b.Build(), stats, nil
}

func parseTriple(fields []string) (model.Triple, error) {
	var ids [3]model.ID
	for i := range ids {
		id, err := conv.ParseID(fields[i])
		if err != nil {
			return model.Triple{}, err
		}
		ids[i] = id
	}
	return model.Triple{Subject: ids[0], Object: ids[1], Predicate: ids[2]}, nil
}

// Forward returns the triples whose subject is id, in source order.
// ok is false when id has no outgoing triples.
func (x *Index) Forward(id model.ID) (triples []model.Triple, ok bool) {
	triples, ok = x.forward[id]
	return triples, ok
}

// Inverse returns the triples whose object is id, in source order.
// ok is false when id has no incoming triples.
func (x *Index) Inverse(id model.ID) (triples []model.Triple, ok bool) {
	triples, ok = x.inverse[id]
	return triples, ok
}

// Lookup dispatches to Forward or Inverse.
func (x *Index) Lookup(id model.ID, dir model.Direction) ([]model.Triple, bool) {
	if dir == model.Inverse {
		return x.Inverse(id)
	}
	return x.Forward(id)
}

// Len returns the number of indexed triples.
func (x *Index) Len() int { return x.count }

// Subjects returns the number of distinct subjects.
func (x *Index) Subjects() int { return len(x.forward) }

// Objects returns the number of distinct objects.
func (x *Index) Objects() int { return len(x.inverse) }

// Entities returns the number of distinct entities with at least one edge.
func (x *Index) Entities() int { return x.entities }
