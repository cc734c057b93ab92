// Package metric scores triples and compares vectors in embedding space.
package metric

import (
	"errors"
	"fmt"
	"strings"

	"github.com/viterin/vek/vek32"
)

// ErrDimensionMismatch is returned when vector lengths differ.
var ErrDimensionMismatch = errors.New("vector sizes do not match")

// Norm selects the distance used by TransE.
type Norm uint8

const (
	// L2 is the Euclidean norm. OpenKE trains TransE with L2 by default.
	L2 Norm = iota
	// L1 is the Manhattan norm.
	L1
)

func (n Norm) String() string {
	if n == L1 {
		return "l1"
	}
	return "l2"
}

// ParseNorm parses "l1" or "l2".
func ParseNorm(s string) (Norm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l2", "":
		return L2, nil
	case "l1":
		return L1, nil
	default:
		return 0, fmt.Errorf("unknown norm %q", s)
	}
}

// TransE returns the TransE dissimilarity ||h + r - t|| of a triple.
// Lower is more plausible.
func TransE(h, r, t []float32, norm Norm) (float32, error) {
	if len(h) != len(r) || len(h) != len(t) {
		return 0, ErrDimensionMismatch
	}
	if len(h) == 0 {
		return 0, nil
	}

	d := vek32.Add(h, r)
	vek32.Sub_Inplace(d, t)

	if norm == L1 {
		return vek32.ManhattanNorm(d), nil
	}
	return vek32.Norm(d), nil
}
