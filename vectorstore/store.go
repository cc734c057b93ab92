package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/lzw429/OpenKE-Embedding-Service/internal/mmap"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

const floatSize = 4

var nativeLittleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1 //nolint:gosec // endianness probe
}()

// Store is a read-only vector store backed by a single contiguous slice.
//
// Thread safety: all methods except Close are safe for concurrent use.
type Store struct {
	dim     int
	count   int
	data    []float32
	mapping *mmap.Mapping
}

// Open maps the file at path and serves it as vectors of dimension dim.
//
// The file length must be a multiple of 4*dim bytes; anything else is treated
// as a corrupt buffer and the mapping is released.
func Open(path string, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open mmap: %w", err)
	}

	s, err := newFromBytes(m.Bytes(), dim)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("vectorstore: %s: %w", path, err)
	}
	s.mapping = m

	return s, nil
}

// FromBytes serves b (little-endian float32 values) as vectors of dimension dim.
// b is aliased when it is suitably aligned on a little-endian host.
func FromBytes(b []byte, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	return newFromBytes(b, dim)
}

// FromFloats serves data as vectors of dimension dim. data is aliased.
func FromFloats(data []float32, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	if len(data)%dim != 0 {
		return nil, ErrCorrupt
	}
	return &Store{dim: dim, count: len(data) / dim, data: data}, nil
}

func newFromBytes(b []byte, dim int) (*Store, error) {
	if len(b)%(floatSize*dim) != 0 {
		return nil, fmt.Errorf("%w: %d bytes, dimension %d", ErrCorrupt, len(b), dim)
	}

	n := len(b) / floatSize
	s := &Store{dim: dim, count: n / dim}
	if n == 0 {
		return s, nil
	}

	if nativeLittleEndian && uintptr(unsafe.Pointer(&b[0]))%floatSize == 0 { //nolint:gosec // alignment check
		s.data = unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n) //nolint:gosec // unsafe is required for mmap access
		return s, nil
	}

	// Big-endian host or unaligned input: decode once.
	s.data = make([]float32, n)
	for i := range s.data {
		s.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*floatSize:]))
	}
	return s, nil
}

// Dimension returns the number of floats per vector.
func (s *Store) Dimension() int { return s.dim }

// Len returns the number of vectors.
func (s *Store) Len() int { return s.count }

// Vector returns the vector for id.
//
// The returned slice aliases the backing buffer and its capacity is clipped
// to the dimension; callers needing an owned copy must copy it.
func (s *Store) Vector(id model.ID) ([]float32, error) {
	if uint64(id) >= uint64(s.count) {
		return nil, &OutOfRangeError{ID: id, Len: s.count}
	}
	start := int(id) * s.dim
	end := start + s.dim
	return s.data[start:end:end], nil
}

// Advise forwards an access-pattern hint to the mapping, if any.
func (s *Store) Advise(pattern mmap.AccessPattern) error {
	if s.mapping == nil {
		return nil
	}
	return s.mapping.Advise(pattern)
}

// Close releases the mapping. Vectors obtained earlier must not be used afterwards.
func (s *Store) Close() error {
	if s.mapping == nil {
		return nil
	}
	s.data = nil
	s.count = 0
	return s.mapping.Close()
}

var _ Reader = (*Store)(nil)
