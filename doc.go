// Package openke serves precomputed knowledge-graph embeddings and the
// graph's adjacency structure, and assembles per-query subgraphs for
// downstream graph-neural models.
//
// # Quick Start
//
// Open a dataset laid out the way OpenKE writes it:
//
//	ctx := context.Background()
//	svc, err := openke.Open(ctx, openke.Local("/data/Freebase"), openke.WithDimension(50))
//	if err != nil { ... }
//	defer svc.Close()
//
// Or stream the tables from object storage and cache the vector buffers:
//
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "kg-bucket", "freebase/")
//	svc, err := openke.Open(ctx, openke.Remote(store, "/var/cache/openke"))
//
// # Strict and Degrading Lookups
//
// Methods on Service surface ErrNotFound and ErrOutOfRange:
//
//	id, err := svc.EntityID("ns:m.0abc")
//	vec, err := svc.VectorByID(model.Relation, 12)
//
// Batch pipelines usually prefer the degrading view, which substitutes
// zero vectors, empty triple lists and model.InvalidID for misses:
//
//	fb := svc.Fallback()
//	vec := fb.VectorByKey(ctx, model.Entity, "m.0abc")
//
// # Subgraphs
//
//	g, err := svc.BuildSubgraph(ctx, triples, []string{"m.0answer"})
//	// g.Edges, g.EntityEmbeddings, g.EdgeEmbeddings, g.Labels
//
// # Concurrency
//
// A Service is immutable after Open returns and may be shared by any number
// of goroutines. Vectors returned by lookups alias the memory-mapped buffers
// and are valid until Close.
package openke
