package openke

import (
	"context"
	"time"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/subgraph"
)

var _ subgraph.Expander = (*Fallback)(nil)

// BuildSubgraph renumbers triples into a local graph with embeddings read
// through the degrading lookups and labels set for answerKeys.
// Unresolved answer keys are dropped and counted in Graph.DroppedAnswers.
func (s *Service) BuildSubgraph(ctx context.Context, triples []model.Triple, answerKeys []string) (*subgraph.Graph, error) {
	start := time.Now()
	g, err := subgraph.NewBuilder(s.fallback).Build(ctx, triples, answerKeys)
	s.recordSubgraph(ctx, len(triples), g, start, err)
	return g, err
}

// BuildSubgraphFromSeeds builds the subgraph of the triples incident to
// seedKeys in direction dir.
func (s *Service) BuildSubgraphFromSeeds(ctx context.Context, seedKeys []string, dir model.Direction, answerKeys []string) (*subgraph.Graph, error) {
	start := time.Now()
	g, err := subgraph.NewBuilder(s.fallback).BuildFromSeeds(ctx, seedKeys, dir, answerKeys)
	triples := 0
	if g != nil {
		triples = g.NumEdges()
	}
	s.recordSubgraph(ctx, triples, g, start, err)
	return g, err
}

func (s *Service) recordSubgraph(ctx context.Context, triples int, g *subgraph.Graph, start time.Time, err error) {
	entities, dropped := 0, 0
	if g != nil {
		entities, dropped = g.NumEntities(), g.DroppedAnswers
	}
	s.metrics.RecordSubgraph(triples, entities, time.Since(start), err)
	s.logger.LogSubgraph(ctx, triples, entities, dropped, err)
}
