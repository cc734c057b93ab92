// Package subgraph turns a list of knowledge-graph triples into a compact,
// locally numbered graph with aligned embedding matrices and answer labels,
// the input shape graph neural networks expect.
//
// Local entity ids are assigned in first-occurrence order, subject before
// object within a triple. The result is fully determined by the input
// triples, the answer keys and the lookup source.
package subgraph
