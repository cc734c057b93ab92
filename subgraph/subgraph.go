package subgraph

import (
	"context"
	"errors"

	gojson "github.com/goccy/go-json"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// ErrNoExpander is returned by BuildFromSeeds when the source cannot list
// adjacency.
var ErrNoExpander = errors.New("subgraph: source does not provide adjacency")

// Source is the degrading lookup surface a Builder reads from.
// Misses must be answered with zero vectors and model.InvalidID, not errors.
type Source interface {
	EntityDimension() int
	RelationDimension() int
	EntityVectorByID(ctx context.Context, id model.ID) []float32
	RelationVectorByID(ctx context.Context, id model.ID) []float32
	EntityIDByKey(ctx context.Context, key string) model.ID
}

// Expander is a Source that can also list the triples incident to entities.
type Expander interface {
	Source
	AdjacencyByKeys(ctx context.Context, keys []string, dir model.Direction) []model.Triple
}

// Edge is a directed edge between two local entity ids.
type Edge struct {
	Source int
	Target int
}

// Graph is a renumbered subgraph. All slices are index-aligned:
//   - Entities[i] is the global id of local entity i, and
//     EntityEmbeddings.Row(i) and Labels[i] describe it;
//   - Edges[j], EdgeRelations[j] and EdgeEmbeddings.Row(j) describe input
//     triple j.
//
// The graph owns copies of all vectors it holds.
type Graph struct {
	Entities         []model.ID
	Relations        []model.ID
	Edges            []Edge
	EdgeRelations    []int
	EntityEmbeddings Matrix
	EdgeEmbeddings   Matrix
	Labels           []uint8
	// DroppedAnswers counts answer keys that did not resolve to an entity.
	DroppedAnswers int

	local map[model.ID]int
}

// NumEntities returns the number of local entities.
func (g *Graph) NumEntities() int { return len(g.Entities) }

// NumEdges returns the number of edges, equal to the input triple count.
func (g *Graph) NumEdges() int { return len(g.Edges) }

// LocalID returns the local id of a global entity id. Graphs made by a
// Builder or decoded from JSON answer from an index. A Graph assembled by
// hand is scanned linearly.
func (g *Graph) LocalID(id model.ID) (int, bool) {
	if g.local != nil {
		l, ok := g.local[id]
		return l, ok
	}
	for i, e := range g.Entities {
		if e == id {
			return i, true
		}
	}
	return 0, false
}

func indexEntities(entities []model.ID) map[model.ID]int {
	local := make(map[model.ID]int, len(entities))
	for i, id := range entities {
		if _, ok := local[id]; !ok {
			local[id] = i
		}
	}
	return local
}

type graphJSON struct {
	Entities          []model.ID  `json:"entities"`
	Relations         []model.ID  `json:"relations"`
	Edges             [][2]int    `json:"edges"`
	EdgeRelations     []int       `json:"edge_relations"`
	EntityEmbeddings  [][]float32 `json:"entity_embeddings"`
	EdgeEmbeddings    [][]float32 `json:"edge_embeddings"`
	Labels            []int       `json:"labels"`
	DroppedAnswers    int         `json:"dropped_answers"`
	EntityDimension   int         `json:"entity_dimension"`
	RelationDimension int         `json:"relation_dimension"`
}

// MarshalJSON encodes edges as [source, target] pairs, matrices as arrays of
// rows and labels as integers. The embedding widths are written separately
// so that an empty graph keeps them.
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := graphJSON{
		Entities:         nonNil(g.Entities),
		Relations:        nonNil(g.Relations),
		Edges:            make([][2]int, len(g.Edges)),
		EdgeRelations:    nonNil(g.EdgeRelations),
		EntityEmbeddings: g.EntityEmbeddings.Rows(),
		EdgeEmbeddings:   g.EdgeEmbeddings.Rows(),
		Labels:           make([]int, len(g.Labels)),
		DroppedAnswers:   g.DroppedAnswers,
	}
	_, w.EntityDimension = g.EntityEmbeddings.Dims()
	_, w.RelationDimension = g.EdgeEmbeddings.Dims()
	for i, e := range g.Edges {
		w.Edges[i] = [2]int{e.Source, e.Target}
	}
	for i, l := range g.Labels {
		w.Labels[i] = int(l)
	}
	return gojson.Marshal(w)
}

// UnmarshalJSON decodes the MarshalJSON encoding.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w graphJSON
	if err := gojson.Unmarshal(data, &w); err != nil {
		return err
	}
	entities, err := fromRows(w.EntityEmbeddings, w.EntityDimension)
	if err != nil {
		return err
	}
	edges, err := fromRows(w.EdgeEmbeddings, w.RelationDimension)
	if err != nil {
		return err
	}
	*g = Graph{
		Entities:         w.Entities,
		Relations:        w.Relations,
		Edges:            make([]Edge, len(w.Edges)),
		EdgeRelations:    w.EdgeRelations,
		EntityEmbeddings: entities,
		EdgeEmbeddings:   edges,
		Labels:           make([]uint8, len(w.Labels)),
		DroppedAnswers:   w.DroppedAnswers,
		local:            indexEntities(w.Entities),
	}
	for i, e := range w.Edges {
		g.Edges[i] = Edge{Source: e[0], Target: e[1]}
	}
	for i, l := range w.Labels {
		g.Labels[i] = uint8(l)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
