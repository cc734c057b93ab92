// Package api defines the HTTP wire contract shared by the server and
// client packages: endpoint paths, request and response bodies and error
// kinds.
//
// Ids travel as signed integers so that -1 can stand for "not found".
// Triples travel as [subject, object, predicate] arrays.
package api
