package client_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/adjacency"
	"github.com/lzw429/OpenKE-Embedding-Service/api"
	"github.com/lzw429/OpenKE-Embedding-Service/catalog"
	"github.com/lzw429/OpenKE-Embedding-Service/client"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/server"
	"github.com/lzw429/OpenKE-Embedding-Service/subgraph"
	"github.com/lzw429/OpenKE-Embedding-Service/vectorstore"
)

// testServer serves e1 -r1-> e2 -r1-> e3 and counts requests.
type testServer struct {
	*httptest.Server
	requests atomic.Int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	entities, err := catalog.New(map[string]model.ID{"e1": 0, "e2": 1, "e3": 2, "e4": 3})
	require.NoError(t, err)
	relations, err := catalog.New(map[string]model.ID{"r1": 0})
	require.NoError(t, err)
	entityVecs, err := vectorstore.FromFloats([]float32{1, 0, 0, 1, 1, 1}, 2)
	require.NoError(t, err)
	relationVecs, err := vectorstore.FromFloats([]float32{0.5, -0.5}, 2)
	require.NoError(t, err)

	svc, err := openke.New(openke.Components{
		Entities:        entities,
		Relations:       relations,
		EntityVectors:   entityVecs,
		RelationVectors: relationVecs,
		Adjacency: adjacency.Build([]model.Triple{
			{Subject: 0, Object: 1, Predicate: 0},
			{Subject: 1, Object: 2, Predicate: 0},
		}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	ts := &testServer{}
	h := server.New(svc).Handler()
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestNewReadsDimensions(t *testing.T) {
	ts := newTestServer(t)

	c, err := client.New(t.Context(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, c.EntityDimension())
	assert.Equal(t, 2, c.RelationDimension())

	h, err := c.Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 4, h.Stats.Entities)
}

func TestNewFailsWithoutServer(t *testing.T) {
	ts := newTestServer(t)
	ts.Close()

	_, err := client.New(t.Context(), ts.URL, client.WithRetryCount(0))
	assert.Error(t, err)
}

func TestStrictLookups(t *testing.T) {
	ts := newTestServer(t)
	c, err := client.New(t.Context(), ts.URL)
	require.NoError(t, err)
	ctx := t.Context()

	id, err := c.EntityIDByKey(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, model.ID(1), id)

	id, err = c.RelationIDByKey(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ID(0), id)

	vec, err := c.VectorByKey(ctx, model.Entity, "e3")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, vec)

	vec, err = c.RelationVectorByID(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, vec)

	triples, err := c.Adjacency(ctx, "e2", model.Inverse)
	require.NoError(t, err)
	assert.Equal(t, []model.Triple{{Subject: 0, Object: 1, Predicate: 0}}, triples)

	triples, err = c.AdjacencyByKeys(ctx, []string{"e1", "e2"}, model.Forward)
	require.NoError(t, err)
	assert.Len(t, triples, 2)

	vecs, err := c.VectorsByKeys(ctx, []string{"e1", "e2"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)

	score, err := c.ScoreTriple(ctx, model.Triple{Subject: 0, Object: 1, Predicate: 0})
	require.NoError(t, err)
	assert.InDelta(t, 2.1213203, score, 1e-5)
}

func TestStrictErrors(t *testing.T) {
	ts := newTestServer(t)
	c, err := client.New(t.Context(), ts.URL)
	require.NoError(t, err)
	ctx := t.Context()

	_, err = c.EntityIDByKey(ctx, "missing")
	assert.ErrorIs(t, err, openke.ErrNotFound)
	var ae *api.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusNotFound, ae.StatusCode)
	assert.Equal(t, api.KindNotFound, ae.Kind)
	assert.False(t, client.IsTransport(err))

	_, err = c.EntityVectorByID(ctx, 7)
	assert.ErrorIs(t, err, openke.ErrOutOfRange)

	_, err = c.EntityVectorByID(ctx, model.InvalidID)
	assert.ErrorIs(t, err, openke.ErrOutOfRange)

	_, err = c.VectorsByKeys(ctx, []string{"e1", "missing"})
	assert.ErrorIs(t, err, openke.ErrNotFound)

	_, err = c.BuildSubgraph(ctx, []model.Triple{{Subject: 0, Object: 1, Predicate: 0}}, []string{"missing"})
	assert.ErrorIs(t, err, openke.ErrNotFound)
}

func TestVectorCache(t *testing.T) {
	ts := newTestServer(t)
	c, err := client.New(t.Context(), ts.URL, client.WithDimensions(2, 2))
	require.NoError(t, err)

	for range 3 {
		vec, err := c.EntityVectorByID(t.Context(), 1)
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 1}, vec)
	}
	assert.Equal(t, int64(1), ts.requests.Load())

	// Relation ids live in their own cache.
	_, err = c.RelationVectorByID(t.Context(), 1)
	assert.ErrorIs(t, err, openke.ErrOutOfRange)
	assert.Equal(t, int64(2), ts.requests.Load())
}

func TestVectorCacheDisabled(t *testing.T) {
	ts := newTestServer(t)
	c, err := client.New(t.Context(), ts.URL, client.WithDimensions(2, 2), client.WithCacheSize(0))
	require.NoError(t, err)

	for range 2 {
		_, err := c.EntityVectorByID(t.Context(), 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), ts.requests.Load())
}

func TestFallbackMisses(t *testing.T) {
	ts := newTestServer(t)
	metrics := &openke.BasicMetricsCollector{}
	c, err := client.New(t.Context(), ts.URL, client.WithMetricsCollector(metrics))
	require.NoError(t, err)
	fb := c.Fallback()
	ctx := t.Context()

	assert.Equal(t, model.InvalidID, fb.EntityIDByKey(ctx, "missing"))
	assert.Equal(t, []float32{0, 0}, fb.EntityVectorByKey(ctx, "missing"))
	assert.Equal(t, []float32{0, 0}, fb.EntityVectorByID(ctx, 9))
	assert.Equal(t, []model.Triple{}, fb.Adjacency(ctx, "missing", model.Forward))
	assert.Equal(t, [][]float32{{1, 0}, {0, 0}}, fb.VectorsByKeys(ctx, []string{"e1", "missing"}))
	assert.Len(t, fb.AdjacencyByKeys(ctx, []string{"e1", "missing"}, model.Forward), 1)
	assert.InDelta(t, 1.5811388, fb.ScoreTriple(ctx, model.Triple{Subject: 0, Object: 9, Predicate: 0}), 1e-5)

	assert.Equal(t, int64(4), metrics.FallbackCount.Load())
}

func TestFallbackUnreachable(t *testing.T) {
	ts := newTestServer(t)
	metrics := &openke.BasicMetricsCollector{}
	c, err := client.New(t.Context(), ts.URL,
		client.WithDimensions(3, 3),
		client.WithRetryCount(0),
		client.WithMetricsCollector(metrics),
	)
	require.NoError(t, err)
	ts.Close()

	fb := c.Fallback()
	ctx := t.Context()

	_, err = c.EntityIDByKey(ctx, "e1")
	require.Error(t, err)
	assert.True(t, client.IsTransport(err))

	assert.Equal(t, model.InvalidID, fb.EntityIDByKey(ctx, "e1"))
	assert.Equal(t, []float32{0, 0, 0}, fb.EntityVectorByID(ctx, 0))
	assert.Equal(t, [][]float32{{0, 0, 0}, {0, 0, 0}}, fb.VectorsByKeys(ctx, []string{"e1", "e2"}))
	assert.Equal(t, []model.Triple{}, fb.AdjacencyByKeys(ctx, []string{"e1"}, model.Forward))
	assert.Zero(t, fb.ScoreTriple(ctx, model.Triple{}))
	assert.Equal(t, int64(5), metrics.FallbackCount.Load())
}

func TestClientSideSubgraphMatchesServer(t *testing.T) {
	ts := newTestServer(t)
	c, err := client.New(t.Context(), ts.URL)
	require.NoError(t, err)

	triples := []model.Triple{
		{Subject: 0, Object: 1, Predicate: 0},
		{Subject: 1, Object: 2, Predicate: 0},
	}
	answers := []string{"e3"}

	local, err := subgraph.NewBuilder(c.Fallback()).Build(t.Context(), triples, answers)
	require.NoError(t, err)
	remote, err := c.BuildSubgraph(t.Context(), triples, answers)
	require.NoError(t, err)

	assert.Equal(t, remote.Entities, local.Entities)
	assert.Equal(t, remote.Edges, local.Edges)
	assert.Equal(t, remote.Labels, local.Labels)
	assert.Equal(t, remote.EntityEmbeddings.Data(), local.EntityEmbeddings.Data())
	assert.Equal(t, remote.EdgeEmbeddings.Data(), local.EdgeEmbeddings.Data())
}

func TestClientSideSubgraphFromSeeds(t *testing.T) {
	ts := newTestServer(t)
	c, err := client.New(t.Context(), ts.URL)
	require.NoError(t, err)

	g, err := subgraph.NewBuilder(c.Fallback()).BuildFromSeeds(t.Context(), []string{"e1", "e2"}, model.Forward, []string{"e3"})
	require.NoError(t, err)
	assert.Equal(t, []model.ID{0, 1, 2}, g.Entities)
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, []uint8{0, 0, 1}, g.Labels)
}

func TestIsTransport(t *testing.T) {
	assert.False(t, client.IsTransport(nil))
	assert.True(t, client.IsTransport(errors.New("dial tcp: refused")))
	assert.False(t, client.IsTransport(&api.Error{StatusCode: 404, Kind: api.KindNotFound}))
}
