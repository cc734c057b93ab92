package api

import (
	"errors"
	"fmt"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/internal/conv"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/subgraph"
)

// Endpoint paths. All operations are POST with a JSON body.
const (
	PathEntityEmbeddingByMid        = "/entity_embedding_by_mid/"
	PathEntityEmbeddingByEid        = "/entity_embedding_by_eid/"
	PathRelationEmbeddingByRelation = "/relation_embedding_by_relation/"
	PathRelationEmbeddingByRid      = "/relation_embedding_by_rid/"
	PathAdjList                     = "/adj_list/"
	PathInverseAdjList              = "/inverse_adj_list/"
	PathEntityIDByMid               = "/entity_id_by_mid/"
	PathRelationIDByRelation        = "/relation_id_by_relation/"
	PathEntityEmbeddingsByMids      = "/entity_embeddings_by_mids/"
	PathAdjListByMids               = "/adj_list_by_mids/"
	PathTripleScore                 = "/triple_score/"
	PathSubgraph                    = "/subgraph/"
	PathHealth                      = "/healthz"
	PathMetrics                     = "/metrics"
)

// StrictParam is the query parameter that selects error-surfacing lookups.
const StrictParam = "strict"

// Error kinds carried in ErrorResponse.Kind.
const (
	KindNotFound   = "not_found"
	KindOutOfRange = "out_of_range"
	KindBadRequest = "bad_request"
	KindOverloaded = "overloaded"
	KindTimeout    = "timeout"
	KindInternal   = "internal"
)

// Triple is a [subject, object, predicate] id triple.
type Triple [3]int64

// FromTriple converts a model triple to its wire form.
func FromTriple(t model.Triple) Triple {
	return Triple{int64(t.Subject), int64(t.Object), int64(t.Predicate)}
}

// FromTriples converts model triples to their wire form. The result is
// never nil.
func FromTriples(ts []model.Triple) []Triple {
	out := make([]Triple, len(ts))
	for i, t := range ts {
		out[i] = FromTriple(t)
	}
	return out
}

// Model converts the wire triple to a model triple.
func (t Triple) Model() (model.Triple, error) {
	var ids [3]model.ID
	for i, v := range t {
		id, err := ID(v)
		if err != nil {
			return model.Triple{}, fmt.Errorf("triple %v: %w", [3]int64(t), err)
		}
		ids[i] = id
	}
	return model.Triple{Subject: ids[0], Object: ids[1], Predicate: ids[2]}, nil
}

// ToTriples converts wire triples to model triples.
func ToTriples(ts []Triple) ([]model.Triple, error) {
	out := make([]model.Triple, len(ts))
	for i, t := range ts {
		m, err := t.Model()
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// MidRequest addresses an entity by key.
type MidRequest struct {
	Mid string `json:"mid"`
}

// EidRequest addresses an entity by id.
type EidRequest struct {
	Eid int64 `json:"eid"`
}

// RelationRequest addresses a relation by key.
type RelationRequest struct {
	Relation string `json:"relation"`
}

// RidRequest addresses a relation by id.
type RidRequest struct {
	Rid int64 `json:"rid"`
}

// MidsRequest addresses a batch of entities by key.
type MidsRequest struct {
	Mids []string `json:"mids"`
	// Direction is "forward" (default) or "inverse"; used by adj_list_by_mids.
	Direction string `json:"direction,omitempty"`
}

// TripleRequest carries one triple.
type TripleRequest struct {
	Triple Triple `json:"triple"`
}

// SubgraphRequest builds a subgraph from explicit triples, or from the
// one-hop neighbourhood of Seeds when Triples is empty.
type SubgraphRequest struct {
	Triples   []Triple `json:"triples,omitempty"`
	Seeds     []string `json:"seeds,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Answers   []string `json:"answers"`
}

// EntityEmbeddingResponse carries one entity vector.
type EntityEmbeddingResponse struct {
	EntityEmbedding []float32 `json:"entity_embedding"`
}

// RelationEmbeddingResponse carries one relation vector.
type RelationEmbeddingResponse struct {
	RelationEmbedding []float32 `json:"relation_embedding"`
}

// AdjListResponse carries forward adjacency.
type AdjListResponse struct {
	AdjList []Triple `json:"adj_list"`
}

// InverseAdjListResponse carries inverse adjacency.
type InverseAdjListResponse struct {
	InverseAdjList []Triple `json:"inverse_adj_list"`
}

// EntityIDResponse carries an entity id, -1 when not found.
type EntityIDResponse struct {
	EntityID int64 `json:"entity_id"`
}

// RelationIDResponse carries a relation id, -1 when not found.
type RelationIDResponse struct {
	RelationID int64 `json:"relation_id"`
}

// EntityEmbeddingsResponse carries a batch of entity vectors.
type EntityEmbeddingsResponse struct {
	EntityEmbeddings [][]float32 `json:"entity_embeddings"`
}

// ScoreResponse carries a TransE distance.
type ScoreResponse struct {
	Score float32 `json:"score"`
}

// SubgraphResponse is the encoded subgraph.Graph.
type SubgraphResponse = subgraph.Graph

// HealthResponse reports liveness and dataset counts.
type HealthResponse struct {
	Status string       `json:"status"`
	Stats  openke.Stats `json:"stats"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Error is an ErrorResponse received by a client, with its status code.
// It unwraps to openke.ErrNotFound or openke.ErrOutOfRange when the kind
// says so.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindNotFound:
		return openke.ErrNotFound
	case KindOutOfRange:
		return openke.ErrOutOfRange
	default:
		return nil
	}
}

// ErrInvalidID marks a wire id that cannot be a model.ID.
var ErrInvalidID = errors.New("invalid id")

// ID converts a wire id. Negative and oversized values are ErrInvalidID.
func ID(v int64) (model.ID, error) {
	id, err := conv.Int64ToID(v)
	if err != nil {
		return model.InvalidID, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return id, nil
}

// WireID converts an id to its wire form; model.InvalidID becomes -1.
func WireID(id model.ID) int64 {
	return conv.IDToInt64(id)
}
