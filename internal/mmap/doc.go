// Package mmap provides read-only memory-mapped file access.
//
// The embedding buffers are mapped once at startup and served by slicing the
// mapping, so a lookup never copies vector data out of the page cache.
//
// # Usage
//
//	m, err := mmap.Open("entity2vec.bin")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	_ = m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers must
// not touch slices obtained from Bytes after Close returns.
package mmap
