package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Fetch makes the blob name available as a local file and returns its path.
//
// Local stores return the file in place. Other stores copy the blob into dir.
// Each copy is stamped with the blob's version in a ".version" sidecar, and
// an existing copy is reused only when its size and stamp both match.
// Blobs without a version are copied every time. Copies are written to a
// temporary file and renamed, so a partial download is never reused.
func Fetch(ctx context.Context, store BlobStore, name, dir string) (string, error) {
	if l, ok := store.(Locator); ok {
		path := l.Path(name)
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}

	if dir == "" {
		return "", fmt.Errorf("blobstore: fetch %s: no cache directory", name)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return "", err
	}
	size := blob.Size()
	version := VersionOf(blob)

	dst := filepath.Join(dir, filepath.FromSlash(name))
	stamp := dst + versionSuffix
	if version != "" && cached(dst, stamp, size, version) {
		_ = blob.Close()
		return dst, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		_ = blob.Close()
		return "", err
	}
	tmp := dst + ".partial"

	if d, ok := store.(Downloader); ok {
		_ = blob.Close()
		err = d.Download(ctx, name, tmp)
	} else {
		err = copyBlob(ctx, blob, tmp)
		if cerr := blob.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("blobstore: fetch %s: %w", name, err)
	}

	if err := os.Remove(stamp); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if version != "" {
		if err := os.WriteFile(stamp, []byte(version), 0o644); err != nil {
			return "", err
		}
	}
	return dst, nil
}

const versionSuffix = ".version"

func cached(dst, stamp string, size int64, version string) bool {
	fi, err := os.Stat(dst)
	if err != nil || fi.Size() != size {
		return false
	}
	v, err := os.ReadFile(stamp)
	return err == nil && string(v) == version
}

func copyBlob(ctx context.Context, blob Blob, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}

	if blob.Size() > 0 {
		rc, err := blob.ReadRange(ctx, 0, blob.Size())
		if err != nil {
			_ = f.Close()
			return err
		}
		_, err = io.Copy(f, rc)
		_ = rc.Close()
		if err != nil {
			_ = f.Close()
			return err
		}
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
