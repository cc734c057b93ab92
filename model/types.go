package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ID is a dense, zero-based identifier of an entity or a relation.
type ID uint32

// InvalidID is the sentinel for "not found". It is never a valid id.
const InvalidID ID = math.MaxUint32

// Valid reports whether id is not the sentinel.
func (id ID) Valid() bool { return id != InvalidID }

// Triple is an immutable (subject, object, predicate) fact.
// Field order follows the triple2id table layout.
type Triple struct {
	Subject   ID
	Object    ID
	Predicate ID
}

// String returns a string representation of the Triple.
func (t Triple) String() string {
	return fmt.Sprintf("(%d,%d,%d)", t.Subject, t.Object, t.Predicate)
}

// Kind selects the entity or the relation id space.
type Kind uint8

const (
	// Entity is the entity space.
	Entity Kind = iota
	// Relation is the relation space.
	Relation
)

func (k Kind) String() string {
	switch k {
	case Entity:
		return "entity"
	case Relation:
		return "relation"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses "entity" or "relation".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entity", "e":
		return Entity, nil
	case "relation", "r":
		return Relation, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

// Direction selects which adjacency index is consulted.
type Direction uint8

const (
	// Forward lists triples where the entity is the subject.
	Forward Direction = iota
	// Inverse lists triples where the entity is the object.
	Inverse
)

func (d Direction) String() string {
	if d == Inverse {
		return "inverse"
	}
	return "forward"
}

// ParseDirection parses "forward" or "inverse".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "out", "":
		return Forward, nil
	case "inverse", "in":
		return Inverse, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

var (
	// ErrNotFound is returned when a key or id is absent from a catalog or index.
	ErrNotFound = errors.New("not found")
	// ErrOutOfRange is returned when an id exceeds the bounds of a vector buffer.
	ErrOutOfRange = errors.New("id out of range")
	// ErrMalformedInput marks a source table row that was skipped.
	ErrMalformedInput = errors.New("malformed input")
)
