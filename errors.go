package openke

import (
	"errors"
	"fmt"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

var (
	// ErrNotFound is returned when a key or id is absent from a catalog or index.
	ErrNotFound = model.ErrNotFound
	// ErrOutOfRange is returned when an id exceeds the bounds of a vector buffer.
	ErrOutOfRange = model.ErrOutOfRange
	// ErrMalformedInput marks a source table row that was skipped at load.
	ErrMalformedInput = model.ErrMalformedInput

	// ErrClosed is returned by lookups on a closed Service.
	ErrClosed = errors.New("service is closed")
)

// LookupError describes a failed strict lookup.
//
// The original underlying error can be accessed via errors.Unwrap and
// matches ErrNotFound or ErrOutOfRange with errors.Is.
type LookupError struct {
	Op   string
	Kind model.Kind
	Key  string
	ID   model.ID
	// ByKey reports whether the lookup was addressed by Key rather than ID.
	ByKey bool
	cause error
}

func (e *LookupError) Error() string {
	if e.ByKey {
		return fmt.Sprintf("%s %s key %q: %v", e.Kind, e.Op, e.Key, e.cause)
	}
	return fmt.Sprintf("%s %s id %d: %v", e.Kind, e.Op, e.ID, e.cause)
}

func (e *LookupError) Unwrap() error { return e.cause }

// LoadError describes a failure to load one of the dataset files.
// A failed load never yields a partially initialized Service.
type LoadError struct {
	File  string
	cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.File, e.cause)
}

func (e *LoadError) Unwrap() error { return e.cause }

// IsMiss reports whether err is a lookup miss (not found or out of range)
// rather than an operational failure.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrOutOfRange)
}
