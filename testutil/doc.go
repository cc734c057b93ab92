// Package testutil provides testing utilities for the embedding service.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random generator and helpers that write OpenKE
// style datasets to disk.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UniformVectors(100, 50)
//	triples := rng.Triples(1000, 100, 10)
//
// # Fixture Datasets
//
//	ds := testutil.NewDataset(rng, 100, 10, 1000, 50)
//	ds.Write(t, dir)
//	svc, err := openke.Open(ctx, openke.Local(dir), openke.WithDimension(50))
package testutil
