package openke

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lzw429/OpenKE-Embedding-Service/adjacency"
	"github.com/lzw429/OpenKE-Embedding-Service/blobstore"
	"github.com/lzw429/OpenKE-Embedding-Service/catalog"
	"github.com/lzw429/OpenKE-Embedding-Service/internal/resource"
	"github.com/lzw429/OpenKE-Embedding-Service/internal/table"
	"github.com/lzw429/OpenKE-Embedding-Service/vectorstore"
)

// tableSuffixes are tried in order when a table is missing under its plain name.
var tableSuffixes = []string{".zst", ".lz4", ".gz"}

// Source locates the dataset files.
type Source struct {
	store    blobstore.BlobStore
	cacheDir string
}

// Local reads the dataset from a directory. Vector files are mapped in place.
func Local(dir string) Source {
	return Source{store: blobstore.NewLocalStore(dir)}
}

// Remote reads the dataset from a blob store. Tables are streamed; vector
// files are downloaded into cacheDir once and mapped from there. An empty
// cacheDir selects a directory under os.TempDir.
func Remote(store blobstore.BlobStore, cacheDir string) Source {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "openke-cache")
	}
	return Source{store: store, cacheDir: cacheDir}
}

// Store returns the underlying blob store.
func (s Source) Store() blobstore.BlobStore { return s.store }

// Open loads the five dataset files in parallel and returns a ready Service.
//
// Any failure cancels the remaining loads, unmaps whatever was mapped and
// returns a *LoadError naming the file. Malformed table rows are skipped and
// reported as warnings.
func Open(ctx context.Context, src Source, optFns ...Option) (svc *Service, err error) {
	if src.store == nil {
		return nil, errors.New("openke: source has no store")
	}
	o := applyOptions(optFns)
	layout := o.resolvedLayout()
	start := time.Now()
	defer func() {
		o.metricsCollector.RecordLoad(time.Since(start), err)
		var stats Stats
		if svc != nil {
			stats = svc.Stats()
		}
		o.logger.LogLoad(ctx, stats, time.Since(start), err)
	}()

	l := &loader{src: src, opts: &o}
	if o.readLimit > 0 {
		l.limiter = resource.NewController(resource.Config{IOLimitBytesPerSec: o.readLimit})
	}
	var c Components

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.Entities, err = l.catalog(gctx, layout.EntityIDs)
		return err
	})
	g.Go(func() (err error) {
		c.Relations, err = l.catalog(gctx, layout.RelationIDs)
		return err
	})
	g.Go(func() (err error) {
		c.Adjacency, err = l.adjacency(gctx, layout.Triples)
		return err
	})
	var entityVecs, relationVecs *vectorstore.Store
	g.Go(func() (err error) {
		entityVecs, err = l.vectors(gctx, layout.EntityVectors, o.entityDim)
		return err
	})
	g.Go(func() (err error) {
		relationVecs, err = l.vectors(gctx, layout.RelationVectors, o.relationDim)
		return err
	})

	if err := g.Wait(); err != nil {
		for _, s := range []*vectorstore.Store{entityVecs, relationVecs} {
			if s != nil {
				_ = s.Close()
			}
		}
		return nil, err
	}

	c.EntityVectors, c.RelationVectors = entityVecs, relationVecs
	return New(c, optFns...)
}

type loader struct {
	src     Source
	opts    *options
	limiter *resource.Controller
}

func (l *loader) catalogOptions(o *catalog.Options) {
	if l.opts.prefixes != nil {
		o.NamespacePrefixes = l.opts.prefixes
	}
}

func (l *loader) catalog(ctx context.Context, name string) (*catalog.Catalog, error) {
	var (
		c     *catalog.Catalog
		stats catalog.Stats
	)
	name, err := l.readTable(ctx, name, func(r io.Reader) (err error) {
		c, stats, err = catalog.Load(r, l.catalogOptions)
		return err
	})
	l.opts.logger.LogTable(ctx, name, stats.Rows, stats.Malformed, err)
	if err != nil {
		return nil, &LoadError{File: name, cause: err}
	}
	if stats.Duplicates > 0 {
		l.opts.logger.WarnContext(ctx, "duplicate keys overwritten",
			"file", name,
			"duplicates", stats.Duplicates,
		)
	}
	return c, nil
}

func (l *loader) adjacency(ctx context.Context, name string) (*adjacency.Index, error) {
	var (
		x     *adjacency.Index
		stats adjacency.Stats
	)
	name, err := l.readTable(ctx, name, func(r io.Reader) (err error) {
		x, stats, err = adjacency.Load(r)
		return err
	})
	l.opts.logger.LogTable(ctx, name, stats.Rows, stats.Malformed, err)
	if err != nil {
		return nil, &LoadError{File: name, cause: err}
	}
	return x, nil
}

// readTable opens name, or its first existing compressed variant, and feeds
// the decompressed content to fn. It returns the name actually read.
func (l *loader) readTable(ctx context.Context, name string, fn func(io.Reader) error) (string, error) {
	rc, err := blobstore.OpenReader(ctx, l.src.store, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		for _, suffix := range tableSuffixes {
			alt, aerr := blobstore.OpenReader(ctx, l.src.store, name+suffix)
			if aerr == nil {
				rc, err, name = alt, nil, name+suffix
				break
			}
			if !errors.Is(aerr, blobstore.ErrNotFound) {
				err = aerr
				break
			}
		}
	}
	if err != nil {
		return name, err
	}
	defer rc.Close()

	var r io.Reader = &ctxReader{ctx: ctx, r: rc}
	if l.limiter != nil {
		r = resource.NewRateLimitedReader(ctx, r, l.limiter)
	}
	dec, err := table.Decompress(r, name)
	if err != nil {
		return name, err
	}
	defer dec.Close()

	return name, fn(dec)
}

func (l *loader) vectors(ctx context.Context, name string, dim int) (*vectorstore.Store, error) {
	path, err := blobstore.Fetch(ctx, l.src.store, name, l.src.cacheDir)
	if err != nil {
		return nil, &LoadError{File: name, cause: err}
	}
	s, err := vectorstore.Open(path, dim)
	if err != nil {
		return nil, &LoadError{File: name, cause: err}
	}
	if err := s.Advise(l.opts.access); err != nil {
		l.opts.logger.WarnContext(ctx, "madvise failed", "file", name, "error", err)
	}
	l.opts.logger.DebugContext(ctx, "vectors mapped",
		"file", name,
		"count", s.Len(),
		"dimension", s.Dimension(),
	)
	return s, nil
}

// ctxReader stops a table scan once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
