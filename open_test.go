package openke_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/blobstore"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
	"github.com/lzw429/OpenKE-Embedding-Service/testutil"
)

const testDim = 8

func writeTestDataset(t *testing.T) (string, *testutil.Dataset) {
	t.Helper()
	dir := t.TempDir()
	ds := testutil.NewDataset(testutil.NewRNG(4711), 40, 5, 200, testDim)
	ds.Write(t, dir)
	return dir, ds
}

func TestOpenLocal(t *testing.T) {
	dir, ds := writeTestDataset(t)

	svc, err := openke.Open(t.Context(), openke.Local(dir), openke.WithDimension(testDim))
	require.NoError(t, err)
	defer svc.Close()

	stats := svc.Stats()
	assert.Equal(t, 40, stats.Entities)
	assert.Equal(t, 5, stats.Relations)
	assert.Equal(t, 40, stats.EntityVectors)
	assert.Equal(t, 200, stats.Triples)

	for i, key := range ds.Entities {
		id, err := svc.EntityID(key)
		require.NoError(t, err)
		assert.Equal(t, model.ID(i), id)

		vec, err := svc.VectorByID(model.Entity, id)
		require.NoError(t, err)
		assert.Equal(t, ds.EntityVectors[i], vec)
	}
}

func TestOpenAdjacencyCompleteness(t *testing.T) {
	dir, ds := writeTestDataset(t)

	svc, err := openke.Open(t.Context(), openke.Local(dir), openke.WithDimension(testDim))
	require.NoError(t, err)
	defer svc.Close()

	want := make(map[model.Triple]int)
	for _, tr := range ds.Triples {
		want[tr]++
	}
	for tr, n := range want {
		key := ds.Entities[tr.Subject]
		fwd, err := svc.Adjacency(key, model.Forward)
		require.NoError(t, err)
		assert.Equal(t, n, count(fwd, tr), "forward(%s)", key)

		key = ds.Entities[tr.Object]
		inv, err := svc.Adjacency(key, model.Inverse)
		require.NoError(t, err)
		assert.Equal(t, n, count(inv, tr), "inverse(%s)", key)
	}
}

func count(triples []model.Triple, want model.Triple) int {
	n := 0
	for _, tr := range triples {
		if tr == want {
			n++
		}
	}
	return n
}

func TestOpenDuplicateKeysLastWriteWins(t *testing.T) {
	dir, _ := writeTestDataset(t)
	files := testutil.DefaultFiles(testDim)
	testutil.WriteFile(t, filepath.Join(dir, files.EntityIDs), []byte("3\nm.a\t0\nm.b\t1\nm.a\t2\n"))

	svc, err := openke.Open(t.Context(), openke.Local(dir), openke.WithDimension(testDim))
	require.NoError(t, err)
	defer svc.Close()

	id, err := svc.EntityID("m.a")
	require.NoError(t, err)
	assert.Equal(t, model.ID(2), id)
	assert.Equal(t, 2, svc.Stats().Entities)
}

func TestOpenSkipsMalformedRows(t *testing.T) {
	dir, _ := writeTestDataset(t)
	files := testutil.DefaultFiles(testDim)
	testutil.WriteFile(t, filepath.Join(dir, files.RelationIDs), []byte("2\nr.0\t0\ngarbage\nr.1 x\nr.1 1\n"))

	svc, err := openke.Open(t.Context(), openke.Local(dir), openke.WithDimension(testDim))
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, 2, svc.Stats().Relations)
}

func TestOpenCompressedTable(t *testing.T) {
	dir, ds := writeTestDataset(t)
	files := testutil.DefaultFiles(testDim)
	path := filepath.Join(dir, files.Triples)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write(raw)
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, os.Remove(path))
	testutil.WriteFile(t, path+".zst", buf.Bytes())

	svc, err := openke.Open(t.Context(), openke.Local(dir), openke.WithDimension(testDim))
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, len(ds.Triples), svc.Stats().Triples)
}

func TestOpenRemote(t *testing.T) {
	dir, ds := writeTestDataset(t)
	files := testutil.DefaultFiles(testDim)

	store := blobstore.NewMemoryStore()
	for _, name := range []string{files.EntityVectors, files.RelationVectors, files.EntityIDs, files.RelationIDs, files.Triples} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, store.Put(t.Context(), filepath.ToSlash(name), data))
	}

	cache := t.TempDir()
	svc, err := openke.Open(t.Context(), openke.Remote(store, cache),
		openke.WithDimension(testDim),
		openke.WithReadLimit(64<<20),
	)
	require.NoError(t, err)
	defer svc.Close()

	vec, err := svc.VectorByKey(model.Relation, ds.Relations[3])
	require.NoError(t, err)
	assert.Equal(t, ds.RelationVectors[3], vec)

	_, err = os.Stat(filepath.Join(cache, files.EntityVectors))
	assert.NoError(t, err, "vectors are cached for mapping")
}

func TestOpenCustomLayout(t *testing.T) {
	dir := t.TempDir()
	ds := testutil.NewDataset(testutil.NewRNG(1), 3, 2, 4, 4)
	ds.WriteFiles(t, dir, testutil.Files{
		EntityVectors:   "e.bin",
		RelationVectors: "r.bin",
		EntityIDs:       "e.txt",
		RelationIDs:     "r.txt",
		Triples:         "t.txt",
	})

	svc, err := openke.Open(t.Context(), openke.Local(dir),
		openke.WithEntityDimension(4),
		openke.WithRelationDimension(4),
		openke.WithLayout(openke.Layout{
			EntityVectors:   "e.bin",
			RelationVectors: "r.bin",
			EntityIDs:       "e.txt",
			RelationIDs:     "r.txt",
			Triples:         "t.txt",
		}),
		openke.WithAccessPattern(openke.AccessWillNeed),
	)
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, 3, svc.Stats().EntityVectors)
}

func TestOpenMissingFile(t *testing.T) {
	dir, _ := writeTestDataset(t)
	files := testutil.DefaultFiles(testDim)
	require.NoError(t, os.Remove(filepath.Join(dir, files.RelationVectors)))

	metrics := &openke.BasicMetricsCollector{}
	svc, err := openke.Open(t.Context(), openke.Local(dir),
		openke.WithDimension(testDim),
		openke.WithMetricsCollector(metrics),
	)
	require.Error(t, err)
	assert.Nil(t, svc)

	var le *openke.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, filepath.ToSlash(files.RelationVectors), filepath.ToSlash(le.File))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, int64(1), metrics.GetStats().LoadErrors)
}

func TestOpenCorruptVectors(t *testing.T) {
	dir, _ := writeTestDataset(t)

	// The buffer is a multiple of 4*8 but not of 4*7.
	_, err := openke.Open(t.Context(), openke.Local(dir),
		openke.WithEntityDimension(7),
		openke.WithRelationDimension(testDim),
		openke.WithLayout(openke.DefaultLayout(testDim)),
	)
	var le *openke.LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.File, "entity2vec.bin")
}

func TestOpenCanceled(t *testing.T) {
	dir, _ := writeTestDataset(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := openke.Open(ctx, openke.Local(dir), openke.WithDimension(testDim))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultLayout(t *testing.T) {
	l := openke.DefaultLayout(50)

	assert.Equal(t, "embeddings/dimension_50/transe/entity2vec.bin", l.EntityVectors)
	assert.Equal(t, "embeddings/dimension_50/transe/relation2vec.bin", l.RelationVectors)
	assert.Equal(t, "knowledge_graphs/entity2id.txt", l.EntityIDs)
	assert.Equal(t, "knowledge_graphs/relation2id.txt", l.RelationIDs)
	assert.Equal(t, "knowledge_graphs/triple2id.txt", l.Triples)
}
