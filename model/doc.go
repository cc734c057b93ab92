// Package model defines the core types shared by the store, the subgraph
// builder and the transport.
//
// # Identity Types
//
//   - ID: dense entity or relation id assigned by the id tables (uint32)
//   - InvalidID: sentinel returned by degrading lookups on a miss
//
// # Data Types
//
//   - Triple: a (subject, object, predicate) fact over dense ids
//   - Kind: selects the entity or the relation space
//   - Direction: selects forward (by subject) or inverse (by object) adjacency
package model
