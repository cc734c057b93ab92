package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// maxLineSize bounds a single table line.
const maxLineSize = 1 << 20

// Stats describes a completed scan.
type Stats struct {
	// Lines is the number of lines read.
	Lines int
	// Rows is the number of rows accepted by the callback.
	Rows int
	// Malformed is the number of skipped lines.
	Malformed int
	// FirstMalformed is the 1-based line number of the first skipped line, or 0.
	FirstMalformed int
}

// RowFunc receives the fields of a row. Returning an error that wraps
// model.ErrMalformedInput skips the row; any other error aborts the scan.
type RowFunc func(line int, fields []string) error

// Split splits a line by the table delimiter rule.
// It returns nil when the line contains neither tab nor space.
func Split(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.Contains(line, "\t"):
		return strings.Split(line, "\t")
	case strings.Contains(line, " "):
		return strings.Split(line, " ")
	default:
		return nil
	}
}

// Scan reads r line by line and calls fn for every line with at least
// minFields fields.
func Scan(r io.Reader, minFields int, fn RowFunc) (Stats, error) {
	var stats Stats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	malformed := func() {
		stats.Malformed++
		if stats.FirstMalformed == 0 {
			stats.FirstMalformed = stats.Lines
		}
	}

	for sc.Scan() {
		stats.Lines++

		fields := Split(sc.Text())
		if len(fields) < minFields {
			malformed()
			continue
		}

		if err := fn(stats.Lines, fields); err != nil {
			if errors.Is(err, model.ErrMalformedInput) {
				malformed()
				continue
			}
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		stats.Rows++
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("line %d: %w", stats.Lines+1, err)
	}
	return stats, nil
}

// Malformed wraps err as a skippable row error.
func Malformed(err error) error {
	return fmt.Errorf("%w: %v", model.ErrMalformedInput, err)
}
