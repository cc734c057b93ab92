package testutil

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// Dataset is an in-memory OpenKE dataset. Keys[i] has id i.
type Dataset struct {
	Dimension       int
	Entities        []string
	Relations       []string
	EntityVectors   [][]float32
	RelationVectors [][]float32
	Triples         []model.Triple
}

// NewDataset generates a dataset with keys "m.<i>" and "r.<i>".
func NewDataset(rng *RNG, entities, relations, triples, dim int) *Dataset {
	ds := &Dataset{
		Dimension:       dim,
		Entities:        make([]string, entities),
		Relations:       make([]string, relations),
		EntityVectors:   rng.UnitVectors(entities, dim),
		RelationVectors: rng.UniformVectors(relations, dim),
		Triples:         rng.Triples(triples, entities, relations),
	}
	for i := range ds.Entities {
		ds.Entities[i] = fmt.Sprintf("m.%d", i)
	}
	for i := range ds.Relations {
		ds.Relations[i] = fmt.Sprintf("r.%d", i)
	}
	return ds
}

// Files are the dataset file names relative to the dataset root.
type Files struct {
	EntityVectors   string
	RelationVectors string
	EntityIDs       string
	RelationIDs     string
	Triples         string
}

// DefaultFiles returns the OpenKE TransE layout for dim.
func DefaultFiles(dim int) Files {
	base := filepath.Join("embeddings", fmt.Sprintf("dimension_%d", dim), "transe")
	return Files{
		EntityVectors:   filepath.Join(base, "entity2vec.bin"),
		RelationVectors: filepath.Join(base, "relation2vec.bin"),
		EntityIDs:       filepath.Join("knowledge_graphs", "entity2id.txt"),
		RelationIDs:     filepath.Join("knowledge_graphs", "relation2id.txt"),
		Triples:         filepath.Join("knowledge_graphs", "triple2id.txt"),
	}
}

// Write stores the dataset under dir in the default layout.
func (ds *Dataset) Write(t testing.TB, dir string) Files {
	t.Helper()
	files := DefaultFiles(ds.Dimension)
	ds.WriteFiles(t, dir, files)
	return files
}

// WriteFiles stores the dataset under dir using the given file names.
func (ds *Dataset) WriteFiles(t testing.TB, dir string, files Files) {
	t.Helper()
	WriteVectors(t, filepath.Join(dir, files.EntityVectors), ds.EntityVectors)
	WriteVectors(t, filepath.Join(dir, files.RelationVectors), ds.RelationVectors)
	WriteIDTable(t, filepath.Join(dir, files.EntityIDs), ds.Entities)
	WriteIDTable(t, filepath.Join(dir, files.RelationIDs), ds.Relations)
	WriteTriples(t, filepath.Join(dir, files.Triples), ds.Triples)
}

// WriteVectors writes vectors as a flat little-endian float32 buffer.
func WriteVectors(t testing.TB, path string, vectors [][]float32) {
	t.Helper()
	var buf []byte
	for _, v := range vectors {
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	WriteFile(t, path, buf)
}

// WriteIDTable writes an OpenKE key/id table: a count header line, then
// one tab-separated "key id" row per key.
func WriteIDTable(t testing.TB, path string, keys []string) {
	t.Helper()
	writeLines(t, path, func(w *bufio.Writer) {
		fmt.Fprintf(w, "%d\n", len(keys))
		for i, k := range keys {
			fmt.Fprintf(w, "%s\t%d\n", k, i)
		}
	})
}

// WriteTriples writes an OpenKE triple table: a count header line, then
// one space-separated "subject object predicate" row per triple.
func WriteTriples(t testing.TB, path string, triples []model.Triple) {
	t.Helper()
	writeLines(t, path, func(w *bufio.Writer) {
		fmt.Fprintf(w, "%d\n", len(triples))
		for _, tr := range triples {
			fmt.Fprintf(w, "%d %d %d\n", tr.Subject, tr.Object, tr.Predicate)
		}
	})
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeLines(t testing.TB, path string, fn func(w *bufio.Writer)) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	w := bufio.NewWriter(f)
	fn(w)
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())
}
