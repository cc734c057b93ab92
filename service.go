package openke

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/lzw429/OpenKE-Embedding-Service/adjacency"
	"github.com/lzw429/OpenKE-Embedding-Service/catalog"
	"github.com/lzw429/OpenKE-Embedding-Service/metric"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/vectorstore"
)

// Components are the loaded parts a Service composes.
type Components struct {
	Entities        *catalog.Catalog
	Relations       *catalog.Catalog
	EntityVectors   vectorstore.Reader
	RelationVectors vectorstore.Reader
	Adjacency       *adjacency.Index
}

func (c Components) validate() error {
	switch {
	case c.Entities == nil:
		return errors.New("openke: missing entity catalog")
	case c.Relations == nil:
		return errors.New("openke: missing relation catalog")
	case c.EntityVectors == nil:
		return errors.New("openke: missing entity vectors")
	case c.RelationVectors == nil:
		return errors.New("openke: missing relation vectors")
	case c.Adjacency == nil:
		return errors.New("openke: missing adjacency index")
	}
	return nil
}

// Stats summarizes a loaded dataset.
type Stats struct {
	Entities          int `json:"entities"`
	Relations         int `json:"relations"`
	EntityVectors     int `json:"entity_vectors"`
	RelationVectors   int `json:"relation_vectors"`
	Triples           int `json:"triples"`
	LinkedEntities    int `json:"linked_entities"`
	EntityDimension   int `json:"entity_dimension"`
	RelationDimension int `json:"relation_dimension"`
}

// Service answers strict lookups against an immutable dataset.
//
// All methods are safe for concurrent use. Close must not race with lookups:
// vectors alias memory that Close unmaps.
type Service struct {
	entities     *catalog.Catalog
	relations    *catalog.Catalog
	entityVecs   vectorstore.Reader
	relationVecs vectorstore.Reader
	adj          *adjacency.Index

	norm    metric.Norm
	logger  *Logger
	metrics MetricsCollector

	closers []io.Closer
	closed  atomic.Bool

	fallback *Fallback
}

// New composes a Service from already loaded components.
// Components implementing io.Closer are closed by Service.Close.
func New(c Components, optFns ...Option) (*Service, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(optFns)
	s := &Service{
		entities:     c.Entities,
		relations:    c.Relations,
		entityVecs:   c.EntityVectors,
		relationVecs: c.RelationVectors,
		adj:          c.Adjacency,
		norm:         o.norm,
		logger:       o.logger,
		metrics:      o.metricsCollector,
	}
	for _, r := range []vectorstore.Reader{c.EntityVectors, c.RelationVectors} {
		if cl, ok := r.(io.Closer); ok {
			s.closers = append(s.closers, cl)
		}
	}
	s.fallback = &Fallback{s: s}
	return s, nil
}

// Fallback returns the degrading view of the service.
func (s *Service) Fallback() *Fallback { return s.fallback }

// Logger returns the logger the service was built with.
func (s *Service) Logger() *Logger { return s.logger }

// Metrics returns the metrics collector the service was built with.
func (s *Service) Metrics() MetricsCollector { return s.metrics }

// Dimension returns the vector width of the given id space.
func (s *Service) Dimension(kind model.Kind) int {
	if kind == model.Relation {
		return s.relationVecs.Dimension()
	}
	return s.entityVecs.Dimension()
}

// Stats returns counts describing the loaded dataset.
func (s *Service) Stats() Stats {
	return Stats{
		Entities:          s.entities.Len(),
		Relations:         s.relations.Len(),
		EntityVectors:     s.entityVecs.Len(),
		RelationVectors:   s.relationVecs.Len(),
		Triples:           s.adj.Len(),
		LinkedEntities:    s.adj.Entities(),
		EntityDimension:   s.entityVecs.Dimension(),
		RelationDimension: s.relationVecs.Dimension(),
	}
}

func (s *Service) catalog(kind model.Kind) *catalog.Catalog {
	if kind == model.Relation {
		return s.relations
	}
	return s.entities
}

func (s *Service) vectors(kind model.Kind) vectorstore.Reader {
	if kind == model.Relation {
		return s.relationVecs
	}
	return s.entityVecs
}

func (s *Service) observe(op string, start time.Time, err error) {
	s.metrics.RecordLookup(op, time.Since(start), err)
}

// IDByKey resolves a key in the given id space.
func (s *Service) IDByKey(kind model.Kind, key string) (id model.ID, err error) {
	start := time.Now()
	defer func() { s.observe(OpID, start, err) }()
	return s.idByKey(kind, key)
}

// EntityID resolves an entity key.
func (s *Service) EntityID(key string) (model.ID, error) {
	return s.IDByKey(model.Entity, key)
}

// RelationID resolves a relation key.
func (s *Service) RelationID(key string) (model.ID, error) {
	return s.IDByKey(model.Relation, key)
}

// VectorByID returns the vector of id. The slice aliases the mapped buffer
// and must not be modified.
func (s *Service) VectorByID(kind model.Kind, id model.ID) (vec []float32, err error) {
	start := time.Now()
	defer func() { s.observe(OpVector, start, err) }()
	return s.vectorByID(kind, id)
}

// VectorByKey resolves key and returns its vector.
func (s *Service) VectorByKey(kind model.Kind, key string) (vec []float32, err error) {
	start := time.Now()
	defer func() { s.observe(OpVector, start, err) }()
	return s.vectorByKey(kind, key)
}

// Adjacency returns the triples incident to an entity key in file order.
// An unknown key is ErrNotFound; a known key without edges yields nil.
// The returned slice is shared and must not be modified.
func (s *Service) Adjacency(key string, dir model.Direction) (triples []model.Triple, err error) {
	start := time.Now()
	defer func() { s.observe(OpAdjacency, start, err) }()
	return s.adjacency(key, dir)
}

// VectorsByKeys returns one vector per key, in input order.
// The first miss aborts the batch.
func (s *Service) VectorsByKeys(kind model.Kind, keys []string) ([][]float32, error) {
	out := make([][]float32, 0, len(keys))
	for _, key := range keys {
		vec, err := s.VectorByKey(kind, key)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// AdjacencyByKeys concatenates the triples of each key, in input-key order.
// The first miss aborts the batch.
func (s *Service) AdjacencyByKeys(keys []string, dir model.Direction) ([]model.Triple, error) {
	var out []model.Triple
	for _, key := range keys {
		triples, err := s.Adjacency(key, dir)
		if err != nil {
			return nil, err
		}
		out = append(out, triples...)
	}
	return out, nil
}

// ScoreTriple returns the TransE distance ||h + r - t|| of a triple of
// global ids. Lower is more plausible.
func (s *Service) ScoreTriple(t model.Triple) (score float32, err error) {
	start := time.Now()
	defer func() { s.observe(OpScore, start, err) }()
	h, err := s.vectorByID(model.Entity, t.Subject)
	if err != nil {
		return 0, err
	}
	r, err := s.vectorByID(model.Relation, t.Predicate)
	if err != nil {
		return 0, err
	}
	tail, err := s.vectorByID(model.Entity, t.Object)
	if err != nil {
		return 0, err
	}
	score, err = metric.TransE(h, r, tail, s.norm)
	if err != nil {
		return 0, fmt.Errorf("score %s: %w", t, err)
	}
	return score, nil
}

func (s *Service) idByKey(kind model.Kind, key string) (model.ID, error) {
	if s.closed.Load() {
		return model.InvalidID, ErrClosed
	}
	id, err := s.catalog(kind).ID(key)
	if err != nil {
		return model.InvalidID, &LookupError{Op: OpID, Kind: kind, Key: key, ByKey: true, cause: err}
	}
	return id, nil
}

func (s *Service) vectorByID(kind model.Kind, id model.ID) ([]float32, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	vec, err := s.vectors(kind).Vector(id)
	if err != nil {
		return nil, &LookupError{Op: OpVector, Kind: kind, ID: id, cause: err}
	}
	return vec, nil
}

func (s *Service) vectorByKey(kind model.Kind, key string) ([]float32, error) {
	id, err := s.idByKey(kind, key)
	if err != nil {
		return nil, err
	}
	vec, err := s.vectorByID(kind, id)
	if err != nil {
		var le *LookupError
		if errors.As(err, &le) {
			le.Key, le.ByKey = key, true
		}
		return nil, err
	}
	return vec, nil
}

func (s *Service) adjacency(key string, dir model.Direction) ([]model.Triple, error) {
	id, err := s.idByKey(model.Entity, key)
	if err != nil {
		var le *LookupError
		if errors.As(err, &le) {
			le.Op = OpAdjacency
		}
		return nil, err
	}
	triples, _ := s.adj.Lookup(id, dir)
	return triples, nil
}

// Close unmaps the vector buffers. It is safe to call more than once.
func (s *Service) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
