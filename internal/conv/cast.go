package conv

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

// ParseID parses a decimal id as found in the id tables.
// Surrounding whitespace, including a trailing "\r", is ignored.
func ParseID(s string) (model.ID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return model.InvalidID, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return Uint64ToID(v)
}

// Int64ToID converts a signed id (e.g. decoded from JSON) to a model.ID.
func Int64ToID(v int64) (model.ID, error) {
	if v < 0 {
		return model.InvalidID, fmt.Errorf("integer overflow: %d cannot be converted to id (negative)", v)
	}
	return Uint64ToID(uint64(v))
}

// Uint64ToID converts v to a model.ID, rejecting the reserved sentinel.
func Uint64ToID(v uint64) (model.ID, error) {
	if v >= math.MaxUint32 {
		return model.InvalidID, fmt.Errorf("integer overflow: %d cannot be converted to id (too large)", v)
	}
	return model.ID(v), nil
}

// IDToInt64 converts id to its wire form; the sentinel maps to -1.
func IDToInt64(id model.ID) int64 {
	if !id.Valid() {
		return -1
	}
	return int64(id)
}
