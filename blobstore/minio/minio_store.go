package minio

import (
	"context"
	"errors"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/lzw429/OpenKE-Embedding-Service/blobstore"
)

// Store implements blobstore.BlobStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO blob store.
// rootPrefix is prepended to all keys (e.g. "freebase/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens an existing blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapErr(err)
	}

	version := info.ETag
	if version == "" && !info.LastModified.IsZero() {
		version = info.LastModified.UTC().Format(time.RFC3339Nano)
	}
	return &minioBlob{
		client:  s.client,
		bucket:  s.bucket,
		key:     key,
		size:    info.Size,
		version: version,
	}, nil
}

// Download writes the object to the local file dst.
func (s *Store) Download(ctx context.Context, name, dst string) error {
	return mapErr(s.client.FGetObject(ctx, s.bucket, s.key(name), dst, minio.GetObjectOptions{}))
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return blobstore.ErrNotFound
	}
	return err
}

// minioBlob implements blobstore.Blob for MinIO.
type minioBlob struct {
	client  *minio.Client
	bucket  string
	key     string
	size    int64
	version string
}

func (b *minioBlob) Size() int64 {
	return b.size
}

func (b *minioBlob) Version() string {
	return b.version
}

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= b.size {
		return 0, io.EOF
	}

	rc, err := b.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.ReadFull(rc, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, io.EOF
	}
	return n, err
}

func (b *minioBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if off > 0 || length < b.size {
		end := off + length - 1
		if end >= b.size {
			end = b.size - 1
		}
		if err := opts.SetRange(off, end); err != nil {
			return nil, err
		}
	}

	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	return obj, nil
}

func (b *minioBlob) Close() error {
	return nil
}

var (
	_ blobstore.BlobStore  = (*Store)(nil)
	_ blobstore.Downloader = (*Store)(nil)
	_ blobstore.Versioned  = (*minioBlob)(nil)
)
