package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for accessing immutable data blobs.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
	// ReadAt reads len(p) bytes starting at off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

// Versioned is implemented by blobs that expose a content version, such as
// an object ETag. The version changes whenever the content does.
type Versioned interface {
	// Version returns an opaque version token, or "" when unknown.
	Version() string
}

// VersionOf returns the version of blob, or "" when it has none.
func VersionOf(blob Blob) string {
	if v, ok := blob.(Versioned); ok {
		return v.Version()
	}
	return ""
}

// Locator is implemented by stores whose blobs are plain local files.
type Locator interface {
	// Path returns the local file path of name.
	Path(name string) string
}

// Downloader is implemented by stores with an efficient whole-blob copy.
type Downloader interface {
	// Download writes the blob name to the local file dst.
	Download(ctx context.Context, name, dst string) error
}

// OpenReader opens name and streams its whole content.
// Closing the reader also closes the blob.
func OpenReader(ctx context.Context, store BlobStore, name string) (io.ReadCloser, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	return &blobReader{ReadCloser: rc, blob: blob}, nil
}

type blobReader struct {
	io.ReadCloser
	blob Blob
}

func (r *blobReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.blob.Close(); err == nil {
		err = cerr
	}
	return err
}
