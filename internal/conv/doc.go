// Package conv provides checked conversions between the integer forms an id
// takes on its way through the system: table text, JSON numbers and model.ID.
//
// Ids come from untrusted sources (id tables, request bodies), so every
// conversion is bounds-checked. model.InvalidID is reserved and never accepted
// as a valid id.
package conv
