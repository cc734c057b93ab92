package server_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/adjacency"
	"github.com/lzw429/OpenKE-Embedding-Service/api"
	"github.com/lzw429/OpenKE-Embedding-Service/catalog"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/server"
	"github.com/lzw429/OpenKE-Embedding-Service/vectorstore"
)

// newTestService serves e1 -r1-> e2 -r1-> e3 with two-dimensional vectors.
// e4 is catalogued but has no vector.
func newTestService(t *testing.T, optFns ...openke.Option) *openke.Service {
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
	}, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func newTestServer(t *testing.T, svc *openke.Service, optFns ...server.Option) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.New(svc, optFns...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body any) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestEmbeddingEndpoints(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	code, body := post(t, ts, api.PathEntityEmbeddingByMid, api.MidRequest{Mid: "e2"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []float32{0, 1}, decode[api.EntityEmbeddingResponse](t, body).EntityEmbedding)

	code, body = post(t, ts, api.PathEntityEmbeddingByEid, api.EidRequest{Eid: 2})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []float32{1, 1}, decode[api.EntityEmbeddingResponse](t, body).EntityEmbedding)

	code, body = post(t, ts, api.PathRelationEmbeddingByRelation, api.RelationRequest{Relation: "r1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []float32{0.5, -0.5}, decode[api.RelationEmbeddingResponse](t, body).RelationEmbedding)

	code, body = post(t, ts, api.PathRelationEmbeddingByRid, api.RidRequest{Rid: 0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []float32{0.5, -0.5}, decode[api.RelationEmbeddingResponse](t, body).RelationEmbedding)
}

func TestFallbackResponses(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	_, body := post(t, ts, api.PathEntityEmbeddingByMid, api.MidRequest{Mid: "missing"})
	assert.Equal(t, []float32{0, 0}, decode[api.EntityEmbeddingResponse](t, body).EntityEmbedding)

	_, body = post(t, ts, api.PathEntityEmbeddingByEid, api.EidRequest{Eid: -1})
	assert.Equal(t, []float32{0, 0}, decode[api.EntityEmbeddingResponse](t, body).EntityEmbedding)

	_, body = post(t, ts, api.PathEntityIDByMid, api.MidRequest{Mid: "missing"})
	assert.Equal(t, int64(-1), decode[api.EntityIDResponse](t, body).EntityID)

	_, body = post(t, ts, api.PathRelationIDByRelation, api.RelationRequest{Relation: "missing"})
	assert.Equal(t, int64(-1), decode[api.RelationIDResponse](t, body).RelationID)

	code, body := post(t, ts, api.PathAdjList, api.MidRequest{Mid: "missing"})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"adj_list":[]}`, string(body))
}

func TestStrictErrors(t *testing.T) {
	ts := newTestServer(t, newTestService(t))
	strict := "?" + api.StrictParam + "=true"

	tests := []struct {
		name string
		path string
		body any
		code int
		kind string
	}{
		{"unknown mid", api.PathEntityEmbeddingByMid, api.MidRequest{Mid: "missing"}, http.StatusNotFound, api.KindNotFound},
		{"mid without vector", api.PathEntityEmbeddingByMid, api.MidRequest{Mid: "e4"}, http.StatusRequestedRangeNotSatisfiable, api.KindOutOfRange},
		{"eid out of range", api.PathEntityEmbeddingByEid, api.EidRequest{Eid: 9}, http.StatusRequestedRangeNotSatisfiable, api.KindOutOfRange},
		{"negative eid", api.PathEntityEmbeddingByEid, api.EidRequest{Eid: -1}, http.StatusRequestedRangeNotSatisfiable, api.KindOutOfRange},
		{"unknown relation", api.PathRelationIDByRelation, api.RelationRequest{Relation: "missing"}, http.StatusNotFound, api.KindNotFound},
		{"unknown adjacency", api.PathInverseAdjList, api.MidRequest{Mid: "missing"}, http.StatusNotFound, api.KindNotFound},
		{"batch miss", api.PathEntityEmbeddingsByMids, api.MidsRequest{Mids: []string{"e1", "missing"}}, http.StatusNotFound, api.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, ts, tt.path+strict, tt.body)
			assert.Equal(t, tt.code, code)
			resp := decode[api.ErrorResponse](t, body)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	resp, err := http.Post(ts.URL+api.PathAdjList, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	code, _ := post(t, ts, api.PathAdjList+"?strict=maybe", api.MidRequest{Mid: "e1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := post(t, ts, api.PathTripleScore, api.TripleRequest{Triple: api.Triple{0, -1, 0}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, api.KindBadRequest, decode[api.ErrorResponse](t, body).Kind)

	code, _ = post(t, ts, api.PathAdjListByMids, api.MidsRequest{Mids: []string{"e1"}, Direction: "sideways"})
	assert.Equal(t, http.StatusBadRequest, code)

	resp, err = http.Get(ts.URL + api.PathAdjList)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAdjacencyEndpoints(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	_, body := post(t, ts, api.PathAdjList, api.MidRequest{Mid: "e2"})
	assert.Equal(t, []api.Triple{{1, 2, 0}}, decode[api.AdjListResponse](t, body).AdjList)

	_, body = post(t, ts, api.PathInverseAdjList, api.MidRequest{Mid: "e2"})
	assert.Equal(t, []api.Triple{{0, 1, 0}}, decode[api.InverseAdjListResponse](t, body).InverseAdjList)

	_, body = post(t, ts, api.PathAdjListByMids, api.MidsRequest{Mids: []string{"e1", "e2", "missing"}})
	assert.Equal(t, []api.Triple{{0, 1, 0}, {1, 2, 0}}, decode[api.AdjListResponse](t, body).AdjList)

	_, body = post(t, ts, api.PathAdjListByMids, api.MidsRequest{Mids: []string{"e3"}, Direction: "inverse"})
	assert.Equal(t, []api.Triple{{1, 2, 0}}, decode[api.AdjListResponse](t, body).AdjList)
}

func TestBatchAndScore(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	_, body := post(t, ts, api.PathEntityEmbeddingsByMids, api.MidsRequest{Mids: []string{"e1", "missing"}})
	assert.Equal(t, [][]float32{{1, 0}, {0, 0}}, decode[api.EntityEmbeddingsResponse](t, body).EntityEmbeddings)

	code, body := post(t, ts, api.PathTripleScore+"?strict=1", api.TripleRequest{Triple: api.Triple{0, 1, 0}})
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 2.1213203, decode[api.ScoreResponse](t, body).Score, 1e-5)
}

func TestSubgraphEndpoint(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	code, body := post(t, ts, api.PathSubgraph, api.SubgraphRequest{
		Triples: []api.Triple{{0, 1, 0}, {1, 2, 0}},
		Answers: []string{"e3", "missing"},
	})
	require.Equal(t, http.StatusOK, code)
	g := decode[api.SubgraphResponse](t, body)
	assert.Equal(t, []model.ID{0, 1, 2}, g.Entities)
	assert.Equal(t, []uint8{0, 0, 1}, g.Labels)
	assert.Equal(t, 1, g.DroppedAnswers)

	code, _ = post(t, ts, api.PathSubgraph+"?strict=true", api.SubgraphRequest{
		Triples: []api.Triple{{0, 1, 0}},
		Answers: []string{"missing"},
	})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = post(t, ts, api.PathSubgraph, api.SubgraphRequest{Seeds: []string{"e2"}, Answers: []string{"e3"}})
	require.Equal(t, http.StatusOK, code)
	g = decode[api.SubgraphResponse](t, body)
	assert.Equal(t, []model.ID{1, 2}, g.Entities)
	assert.Equal(t, 1, g.NumEdges())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	resp, err := http.Get(ts.URL + api.PathHealth)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 4, h.Stats.Entities)
	assert.Equal(t, 2, h.Stats.Triples)
}

func TestGzipResponses(t *testing.T) {
	ts := newTestServer(t, newTestService(t))

	// Large enough to pass gzhttp's minimum size.
	mids := make([]string, 200)
	for i := range mids {
		mids[i] = "e1"
	}
	data, err := json.Marshal(api.MidsRequest{Mids: mids})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+api.PathEntityEmbeddingsByMids, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	tr := &http.Transport{DisableCompression: true}
	defer tr.CloseIdleConnections()
	resp, err := (&http.Client{Transport: tr}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var out api.EntityEmbeddingsResponse
	require.NoError(t, json.NewDecoder(zr).Decode(&out))
	assert.Len(t, out.EntityEmbeddings, 200)
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc := server.NewPrometheusCollector(reg)
	svc := newTestService(t, openke.WithMetricsCollector(pc))
	ts := newTestServer(t, svc, server.WithPrometheus(pc, reg))

	post(t, ts, api.PathEntityEmbeddingByMid, api.MidRequest{Mid: "missing"})
	post(t, ts, api.PathEntityEmbeddingByMid, api.MidRequest{Mid: "e1"})

	nf, err := http.Post(ts.URL+"/no/such/path/", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	require.NoError(t, nf.Body.Close())
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)

	resp, err := http.Get(ts.URL + api.PathMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `openke_fallbacks_total{op="vector"} 1`)
	assert.Contains(t, text, `openke_lookup_duration_seconds_count{op="vector",status="hit"} 1`)
	assert.Contains(t, text, `route="`+api.PathEntityEmbeddingByMid+`"`)
	assert.Contains(t, text, `route="unmatched"`)
	assert.NotContains(t, text, "/no/such/path")
}

func TestAdmissionRejects(t *testing.T) {
	ts := newTestServer(t, newTestService(t),
		server.WithRateLimit(0.001, 1),
		server.WithRequestTimeout(50*time.Millisecond),
	)

	code, _ := post(t, ts, api.PathEntityIDByMid, api.MidRequest{Mid: "e1"})
	require.Equal(t, http.StatusOK, code)

	code, body := post(t, ts, api.PathEntityIDByMid, api.MidRequest{Mid: "e1"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, api.KindOverloaded, decode[api.ErrorResponse](t, body).Kind)

	// Health bypasses admission.
	resp, err := http.Get(ts.URL + api.PathHealth)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClosedService(t *testing.T) {
	svc := newTestService(t)
	ts := newTestServer(t, svc)
	require.NoError(t, svc.Close())

	code, body := post(t, ts, api.PathEntityIDByMid+"?strict=true", api.MidRequest{Mid: "e1"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, api.KindOverloaded, decode[api.ErrorResponse](t, body).Kind)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	srv := server.New(newTestService(t), server.WithShutdownGrace(time.Second))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + api.PathHealth)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
