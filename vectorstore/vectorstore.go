// Package vectorstore serves fixed-width float32 vectors by dense id from a
// read-only, memory-mapped buffer.
//
// The vector for id i occupies elements [i*D, (i+1)*D) of the buffer, which
// holds little-endian float32 values with no header. Lookups slice the
// mapping; nothing is copied at load time on little-endian hosts.
package vectorstore

import (
	"errors"
	"fmt"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

var (
	// ErrInvalidDimension is returned when the dimension is not positive.
	ErrInvalidDimension = errors.New("vectorstore: dimension must be positive")
	// ErrCorrupt is returned when the buffer length is not a multiple of the vector width.
	ErrCorrupt = errors.New("vectorstore: buffer length is not a multiple of the vector size")
)

// Reader is the read side of a vector store.
type Reader interface {
	// Dimension returns the number of floats per vector.
	Dimension() int
	// Len returns the number of vectors.
	Len() int
	// Vector returns the vector for id. The slice aliases the store and must
	// not be modified.
	Vector(id model.ID) ([]float32, error)
}

// OutOfRangeError reports an id beyond the end of the buffer.
type OutOfRangeError struct {
	ID  model.ID
	Len int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("vectorstore: id %d out of range [0,%d)", e.ID, e.Len)
}

func (e *OutOfRangeError) Unwrap() error { return model.ErrOutOfRange }
