package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kg", "entity2id.txt"), []byte("m.01\t0\n"), 0o600))

	store := NewLocalStore(dir)
	assert.Equal(t, dir, store.Root())

	blob, err := store.Open(ctx, "kg/entity2id.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(7), blob.Size())

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "m.01", string(buf))

	require.NoError(t, blob.Close())

	_, err = store.Open(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	// Fetch returns local files in place.
	path, err := Fetch(ctx, store, "kg/entity2id.txt", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kg", "entity2id.txt"), path)

	_, err = Fetch(ctx, store, "missing.txt", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ReadAt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relation2vec.bin"), []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0o600))

	blob, err := NewLocalStore(dir).Open(ctx, "relation2vec.bin")
	require.NoError(t, err)
	defer blob.Close()

	tests := []struct {
		name    string
		off     int64
		size    int
		want    []byte
		wantErr error
	}{
		{"in bounds", 2, 4, []byte{3, 4, 5, 6}, nil},
		{"whole blob", 0, 8, []byte{1, 2, 3, 4, 5, 6, 7, 8}, nil},
		{"partial at end", 6, 4, []byte{7, 8}, io.EOF},
		{"past end", 8, 4, []byte{}, io.EOF},
		{"negative offset", -1, 4, []byte{}, io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.size)
			n, err := blob.ReadAt(ctx, buf, tt.off)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, buf[:n])
		})
	}

	n, err := blob.ReadAt(ctx, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	src := []byte("0\t1\t0\n")
	require.NoError(t, store.Put(ctx, "triple2id.txt", src))
	src[0] = 'x'

	rc, err := OpenReader(ctx, store, "triple2id.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "0\t1\t0\n", string(got))

	blob, err := store.Open(ctx, "triple2id.txt")
	require.NoError(t, err)
	n, err := blob.ReadAt(ctx, make([]byte, 10), 0)
	assert.Equal(t, 6, n)
	assert.Equal(t, io.EOF, err)

	require.NoError(t, store.Delete(ctx, "triple2id.txt"))
	_, err = store.Open(ctx, "triple2id.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

// countingStore counts how often blob contents are read.
type countingStore struct {
	BlobStore
	reads     int
	versioned bool
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	blob, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.versioned {
		return &versionedCountingBlob{countingBlob{Blob: blob, s: s}}, nil
	}
	return &countingBlob{Blob: blob, s: s}, nil
}

type countingBlob struct {
	Blob
	s *countingStore
}

func (b *countingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	b.s.reads++
	return b.Blob.ReadRange(ctx, off, length)
}

type versionedCountingBlob struct {
	countingBlob
}

func (b *versionedCountingBlob) Version() string { return VersionOf(b.Blob) }

func TestFetch_CopiesAndReuses(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Put(ctx, "emb/entity2vec.bin", []byte{1, 2, 3, 4}))
	store := &countingStore{BlobStore: mem, versioned: true}

	dir := t.TempDir()
	path, err := Fetch(ctx, store, "emb/entity2vec.bin", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "emb", "entity2vec.bin"), path)
	assert.Equal(t, 1, store.reads)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	// An unchanged blob is served from the cached copy.
	path2, err := Fetch(ctx, store, "emb/entity2vec.bin", dir)
	require.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.Equal(t, 1, store.reads)
}

func TestFetch_RefreshesSameSizeContent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "emb/entity2vec.bin", []byte{1, 2, 3, 4}))

	dir := t.TempDir()
	path, err := Fetch(ctx, store, "emb/entity2vec.bin", dir)
	require.NoError(t, err)

	// Retrained vectors with the same shape replace the cached copy.
	require.NoError(t, store.Put(ctx, "emb/entity2vec.bin", []byte{9, 9, 9, 9}))
	path2, err := Fetch(ctx, store, "emb/entity2vec.bin", dir)
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	got, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9}, got)
}

func TestFetch_UnversionedBlobsAreCopiedAgain(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Put(ctx, "relation2vec.bin", []byte{5, 6, 7, 8}))
	store := &countingStore{BlobStore: mem}

	dir := t.TempDir()
	for range 2 {
		path, err := Fetch(ctx, store, "relation2vec.bin", dir)
		require.NoError(t, err)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte{5, 6, 7, 8}, got)
	}
	assert.Equal(t, 2, store.reads)

	_, err := os.Stat(filepath.Join(dir, "relation2vec.bin"+versionSuffix))
	assert.True(t, os.IsNotExist(err))
}

func TestFetch_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := Fetch(ctx, store, "missing.bin", t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "a.bin", []byte{1}))
	_, err = Fetch(ctx, store, "a.bin", "")
	assert.Error(t, err)
}
