package openke_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/subgraph"
)

func TestBuildSubgraphEndToEnd(t *testing.T) {
	svc := newTestService(t)
	triples := newScenario().triples

	g, err := svc.BuildSubgraph(t.Context(), triples, []string{"e3"})
	require.NoError(t, err)

	assert.Equal(t, []model.ID{0, 1, 2}, g.Entities)
	assert.Equal(t, []subgraph.Edge{{Source: 0, Target: 1}, {Source: 1, Target: 2}}, g.Edges)
	assert.Equal(t, []uint8{0, 0, 1}, g.Labels)

	rows, _ := g.EdgeEmbeddings.Dims()
	require.Equal(t, 2, rows)
	r0, err := svc.VectorByID(model.Relation, 0)
	require.NoError(t, err)
	assert.Equal(t, r0, g.EdgeEmbeddings.Row(0))
	assert.Equal(t, r0, g.EdgeEmbeddings.Row(1))
}

func TestBuildSubgraphDeterministic(t *testing.T) {
	svc := newTestService(t)
	triples := []model.Triple{
		{Subject: 2, Object: 0, Predicate: 0},
		{Subject: 0, Object: 1, Predicate: 0},
		{Subject: 1, Object: 2, Predicate: 0},
	}

	first, err := svc.BuildSubgraph(t.Context(), triples, []string{"e1", "e2"})
	require.NoError(t, err)
	second, err := svc.BuildSubgraph(t.Context(), triples, []string{"e1", "e2"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []uint8{0, 1, 1}, first.Labels)
}

func TestBuildSubgraphDropsAnswers(t *testing.T) {
	metrics := &openke.BasicMetricsCollector{}
	svc := newTestService(t, openke.WithMetricsCollector(metrics))

	g, err := svc.BuildSubgraph(t.Context(), newScenario().triples, []string{"e1", "ghost"})
	require.NoError(t, err)

	assert.Equal(t, []uint8{1, 0, 0}, g.Labels)
	assert.Equal(t, 1, g.DroppedAnswers)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SubgraphCount)
	assert.Equal(t, int64(2), stats.SubgraphTriples)
	assert.Equal(t, int64(3), stats.SubgraphEntities)
}

func TestBuildSubgraphFromSeeds(t *testing.T) {
	svc := newTestService(t)

	g, err := svc.BuildSubgraphFromSeeds(t.Context(), []string{"e3"}, model.Inverse, []string{"e2"})
	require.NoError(t, err)

	assert.Equal(t, []model.ID{1, 2}, g.Entities)
	assert.Equal(t, []uint8{1, 0}, g.Labels)
}
