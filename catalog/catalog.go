// Package catalog maps external entity and relation keys to dense ids.
//
// A Catalog is built once from a two-column key/id table and is immutable
// afterwards, so it can be shared by any number of concurrent readers.
package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/lzw429/OpenKE-Embedding-Service/internal/conv"
	"github.com/lzw429/OpenKE-Embedding-Service/internal/table"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// DefaultNamespacePrefixes are stripped from keys before use.
var DefaultNamespacePrefixes = []string{"http://rdf.freebase.com/ns/", "ns:"}

// Stats describes a catalog load.
type Stats struct {
	// Rows is the number of accepted rows.
	Rows int
	// Malformed is the number of skipped lines.
	Malformed int
	// Duplicates is the number of rows that overwrote an earlier key.
	Duplicates int
}

// Options configures a Catalog.
type Options struct {
	// NamespacePrefixes are stripped from keys at load and lookup time.
	// Nil means DefaultNamespacePrefixes; an empty slice disables stripping.
	NamespacePrefixes []string
}

// Catalog is an immutable bidirectional key <-> id mapping.
type Catalog struct {
	ids      map[string]model.ID
	keys     map[model.ID]string
	prefixes []string
}

func newCatalog(optFns []func(o *Options)) *Catalog {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	prefixes := opts.NamespacePrefixes
	if prefixes == nil {
		prefixes = DefaultNamespacePrefixes
	}
	return &Catalog{
		ids:      make(map[string]model.ID),
		keys:     make(map[model.ID]string),
		prefixes: prefixes,
	}
}

// New creates a Catalog from an in-memory mapping.
func New(ids map[string]model.ID, optFns ...func(o *Options)) (*Catalog, error) {
	c := newCatalog(optFns)
	for key, id := range ids {
		if !id.Valid() {
			return nil, fmt.Errorf("catalog: key %q: %w", key, model.ErrMalformedInput)
		}
		c.put(key, id)
	}
	return c, nil
}

// Load builds a Catalog from a key/id table in a single pass.
//
// Lines matching neither delimiter and rows whose id does not parse are
// skipped. A key that appears twice keeps the id of its last occurrence.
func Load(r io.Reader, optFns ...func(o *Options)) (*Catalog, Stats, error) {
	c := newCatalog(optFns)

	var duplicates int
	ts, err := table.Scan(r, 2, func(_ int, fields []string) error {
		id, err := conv.ParseID(fields[1])
		if err != nil {
			return table.Malformed(err)
		}
		if c.put(fields[0], id) {
			duplicates++
		}
		return nil
	})
	stats := Stats{Rows: ts.Rows, Malformed: ts.Malformed, Duplicates: duplicates}
	if err != nil {
		return nil, stats, fmt.Errorf("catalog: %w", err)
	}
	return c, stats, nil
}

// put stores key -> id, reporting whether key was already present.
func (c *Catalog) put(key string, id model.ID) bool {
	key = c.Normalize(key)

	old, dup := c.ids[key]
	if dup && c.keys[old] == key {
		delete(c.keys, old)
	}
	c.ids[key] = id
	c.keys[id] = key
	return dup
}

// Normalize strips the first matching namespace prefix from key.
func (c *Catalog) Normalize(key string) string {
	return StripNamespace(key, c.prefixes)
}

// ID returns the id of key.
func (c *Catalog) ID(key string) (model.ID, error) {
	id, ok := c.ids[c.Normalize(key)]
	if !ok {
		return model.InvalidID, fmt.Errorf("key %q: %w", key, model.ErrNotFound)
	}
	return id, nil
}

// Key returns the key that was last assigned id.
func (c *Catalog) Key(id model.ID) (string, error) {
	key, ok := c.keys[id]
	if !ok {
		return "", fmt.Errorf("id %d: %w", id, model.ErrNotFound)
	}
	return key, nil
}

// Len returns the number of distinct keys.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// StripNamespace removes the first prefix in prefixes that key starts with.
func StripNamespace(key string, prefixes []string) string {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return key[len(p):]
		}
	}
	return key
}
