package table

import (
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the encoding of a table file.
type Compression uint8

const (
	// CompressionNone is plain text.
	CompressionNone Compression = iota
	// CompressionZSTD is a zstd stream (.zst, .zstd).
	CompressionZSTD
	// CompressionLZ4 is an lz4 frame stream (.lz4).
	CompressionLZ4
	// CompressionGzip is a gzip stream (.gz).
	CompressionGzip
)

func (c Compression) String() string {
	switch c {
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionGzip:
		return "gzip"
	default:
		return "none"
	}
}

// CompressionOf returns the compression implied by name's extension.
func CompressionOf(name string) Compression {
	switch strings.ToLower(path.Ext(name)) {
	case ".zst", ".zstd":
		return CompressionZSTD
	case ".lz4":
		return CompressionLZ4
	case ".gz":
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Decompress wraps r with the decoder implied by name.
// Closing the result releases the decoder but not r.
func Decompress(r io.Reader, name string) (io.ReadCloser, error) {
	switch CompressionOf(name) {
	case CompressionZSTD:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	default:
		return io.NopCloser(r), nil
	}
}
