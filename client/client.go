package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/api"
	"github.com/lzw429/OpenKE-Embedding-Service/codec"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/subgraph"
)

// Client is a strict openke client.
type Client struct {
	http        *resty.Client
	logger      *openke.Logger
	metrics     openke.MetricsCollector
	entityDim   int
	relationDim int
	entities    *lru.Cache[model.ID, []float32]
	relations   *lru.Cache[model.ID, []float32]
	fallback    *Fallback
}

// New creates a client for the server at baseURL. Unless WithDimensions is
// given, it reads the vector widths from the server's health endpoint.
func New(ctx context.Context, baseURL string, optFns ...Option) (*Client, error) {
	o := options{
		timeout:   DefaultTimeout,
		retries:   DefaultRetryCount,
		cacheSize: DefaultCacheSize,
		codec:     codec.Default,
		logger:    openke.NoopLogger(),
		metrics:   openke.NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = openke.NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = openke.NoopMetricsCollector{}
	}

	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetRetryCount(o.retries).
		SetRetryWaitTime(50*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, _ error) bool {
			return r != nil && r.StatusCode() == http.StatusServiceUnavailable
		}).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(o.codec.Marshal).
		SetJSONUnmarshaler(o.codec.Unmarshal)

	c := &Client{
		http:        rc,
		logger:      o.logger,
		metrics:     o.metrics,
		entityDim:   o.entityDim,
		relationDim: o.relationDim,
	}
	c.fallback = &Fallback{c: c}

	if o.cacheSize > 0 {
		var err error
		if c.entities, err = lru.New[model.ID, []float32](o.cacheSize); err != nil {
			return nil, err
		}
		if c.relations, err = lru.New[model.ID, []float32](o.cacheSize); err != nil {
			return nil, err
		}
	}

	if c.entityDim <= 0 || c.relationDim <= 0 {
		h, err := c.Health(ctx)
		if err != nil {
			return nil, fmt.Errorf("client: read dimensions: %w", err)
		}
		c.entityDim = h.Stats.EntityDimension
		c.relationDim = h.Stats.RelationDimension
	}
	return c, nil
}

// Fallback returns the degrading view of c.
func (c *Client) Fallback() *Fallback { return c.fallback }

// EntityDimension returns the entity vector width.
func (c *Client) EntityDimension() int { return c.entityDim }

// RelationDimension returns the relation vector width.
func (c *Client) RelationDimension() int { return c.relationDim }

func (c *Client) dimension(kind model.Kind) int {
	if kind == model.Relation {
		return c.relationDim
	}
	return c.entityDim
}

func (c *Client) cache(kind model.Kind) *lru.Cache[model.ID, []float32] {
	if kind == model.Relation {
		return c.relations
	}
	return c.entities
}

// Health returns the server status and dataset counts.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&api.ErrorResponse{}).
		Get(api.PathHealth)
	if err := responseError(api.PathHealth, resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends body to path and decodes the answer into out.
func (c *Client) post(ctx context.Context, path string, strict bool, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(api.StrictParam, strconv.FormatBool(strict)).
		SetBody(body).
		SetResult(out).
		SetError(&api.ErrorResponse{}).
		Post(path)
	return responseError(path, resp, err)
}

func responseError(path string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	if !resp.IsError() {
		return nil
	}
	e := &api.Error{StatusCode: resp.StatusCode(), Message: resp.Status()}
	if body, ok := resp.Error().(*api.ErrorResponse); ok && body.Kind != "" {
		e.Kind, e.Message = body.Kind, body.Error
	}
	return e
}

func (c *Client) observe(op string, start time.Time, err error) {
	c.metrics.RecordLookup(op, time.Since(start), err)
}

// IDByKey resolves a key in the given id space.
func (c *Client) IDByKey(ctx context.Context, kind model.Kind, key string) (id model.ID, err error) {
	start := time.Now()
	defer func() { c.observe(openke.OpID, start, err) }()

	var wire int64
	if kind == model.Relation {
		var out api.RelationIDResponse
		err = c.post(ctx, api.PathRelationIDByRelation, true, api.RelationRequest{Relation: key}, &out)
		wire = out.RelationID
	} else {
		var out api.EntityIDResponse
		err = c.post(ctx, api.PathEntityIDByMid, true, api.MidRequest{Mid: key}, &out)
		wire = out.EntityID
	}
	if err != nil {
		return model.InvalidID, err
	}
	return api.ID(wire)
}

// EntityIDByKey resolves an entity key.
func (c *Client) EntityIDByKey(ctx context.Context, key string) (model.ID, error) {
	return c.IDByKey(ctx, model.Entity, key)
}

// RelationIDByKey resolves a relation key.
func (c *Client) RelationIDByKey(ctx context.Context, key string) (model.ID, error) {
	return c.IDByKey(ctx, model.Relation, key)
}

// VectorByID returns the vector of id, from the cache when possible.
func (c *Client) VectorByID(ctx context.Context, kind model.Kind, id model.ID) (vec []float32, err error) {
	start := time.Now()
	defer func() { c.observe(openke.OpVector, start, err) }()

	cache := c.cache(kind)
	if cache != nil {
		if vec, ok := cache.Get(id); ok {
			return vec, nil
		}
	}
	if kind == model.Relation {
		var out api.RelationEmbeddingResponse
		err = c.post(ctx, api.PathRelationEmbeddingByRid, true, api.RidRequest{Rid: api.WireID(id)}, &out)
		vec = out.RelationEmbedding
	} else {
		var out api.EntityEmbeddingResponse
		err = c.post(ctx, api.PathEntityEmbeddingByEid, true, api.EidRequest{Eid: api.WireID(id)}, &out)
		vec = out.EntityEmbedding
	}
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Add(id, vec)
	}
	return vec, nil
}

// EntityVectorByID returns the entity vector of id.
func (c *Client) EntityVectorByID(ctx context.Context, id model.ID) ([]float32, error) {
	return c.VectorByID(ctx, model.Entity, id)
}

// RelationVectorByID returns the relation vector of id.
func (c *Client) RelationVectorByID(ctx context.Context, id model.ID) ([]float32, error) {
	return c.VectorByID(ctx, model.Relation, id)
}

// VectorByKey resolves key on the server and returns its vector.
func (c *Client) VectorByKey(ctx context.Context, kind model.Kind, key string) (vec []float32, err error) {
	start := time.Now()
	defer func() { c.observe(openke.OpVector, start, err) }()

	if kind == model.Relation {
		var out api.RelationEmbeddingResponse
		err = c.post(ctx, api.PathRelationEmbeddingByRelation, true, api.RelationRequest{Relation: key}, &out)
		return out.RelationEmbedding, err
	}
	var out api.EntityEmbeddingResponse
	err = c.post(ctx, api.PathEntityEmbeddingByMid, true, api.MidRequest{Mid: key}, &out)
	return out.EntityEmbedding, err
}

// Adjacency returns the triples incident to an entity key.
func (c *Client) Adjacency(ctx context.Context, key string, dir model.Direction) (triples []model.Triple, err error) {
	start := time.Now()
	defer func() { c.observe(openke.OpAdjacency, start, err) }()

	var wire []api.Triple
	if dir == model.Inverse {
		var out api.InverseAdjListResponse
		err = c.post(ctx, api.PathInverseAdjList, true, api.MidRequest{Mid: key}, &out)
		wire = out.InverseAdjList
	} else {
		var out api.AdjListResponse
		err = c.post(ctx, api.PathAdjList, true, api.MidRequest{Mid: key}, &out)
		wire = out.AdjList
	}
	if err != nil {
		return nil, err
	}
	return api.ToTriples(wire)
}

// VectorsByKeys returns one entity vector per key. Any miss fails the batch.
func (c *Client) VectorsByKeys(ctx context.Context, keys []string) ([][]float32, error) {
	return c.vectorsByKeys(ctx, keys, true)
}

func (c *Client) vectorsByKeys(ctx context.Context, keys []string, strict bool) ([][]float32, error) {
	var out api.EntityEmbeddingsResponse
	if err := c.post(ctx, api.PathEntityEmbeddingsByMids, strict, api.MidsRequest{Mids: keys}, &out); err != nil {
		return nil, err
	}
	return out.EntityEmbeddings, nil
}

// AdjacencyByKeys concatenates the triples of every key. Any miss fails
// the batch.
func (c *Client) AdjacencyByKeys(ctx context.Context, keys []string, dir model.Direction) ([]model.Triple, error) {
	return c.adjacencyByKeys(ctx, keys, dir, true)
}

func (c *Client) adjacencyByKeys(ctx context.Context, keys []string, dir model.Direction, strict bool) ([]model.Triple, error) {
	var out api.AdjListResponse
	req := api.MidsRequest{Mids: keys, Direction: dir.String()}
	if err := c.post(ctx, api.PathAdjListByMids, strict, req, &out); err != nil {
		return nil, err
	}
	return api.ToTriples(out.AdjList)
}

// ScoreTriple returns the server's TransE distance for t.
func (c *Client) ScoreTriple(ctx context.Context, t model.Triple) (score float32, err error) {
	start := time.Now()
	defer func() { c.observe(openke.OpScore, start, err) }()
	return c.scoreTriple(ctx, t, true)
}

func (c *Client) scoreTriple(ctx context.Context, t model.Triple, strict bool) (float32, error) {
	var out api.ScoreResponse
	if err := c.post(ctx, api.PathTripleScore, strict, api.TripleRequest{Triple: api.FromTriple(t)}, &out); err != nil {
		return 0, err
	}
	return out.Score, nil
}

// BuildSubgraph asks the server to build the subgraph of triples. Answer keys
// the server cannot resolve fail the call.
func (c *Client) BuildSubgraph(ctx context.Context, triples []model.Triple, answerKeys []string) (g *subgraph.Graph, err error) {
	start := time.Now()
	out := &subgraph.Graph{}
	defer func() { c.metrics.RecordSubgraph(len(triples), out.NumEntities(), time.Since(start), err) }()

	req := api.SubgraphRequest{Triples: api.FromTriples(triples), Answers: answerKeys}
	if err := c.post(ctx, api.PathSubgraph, true, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsTransport reports whether err is a transport failure rather than an
// answer from the server.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var ae *api.Error
	return !errors.As(err, &ae) && !errors.Is(err, api.ErrInvalidID)
}
