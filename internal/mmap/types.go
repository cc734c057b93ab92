package mmap

import (
	"errors"
	"fmt"
	"strings"
)

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	// Embedding lookups by id are random reads.
	AccessRandom
	// AccessWillNeed asks the kernel to prefetch the whole mapping.
	AccessWillNeed
)

// ParseAccessPattern parses "default", "sequential", "random" or "willneed".
func ParseAccessPattern(s string) (AccessPattern, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "normal":
		return AccessDefault, nil
	case "sequential":
		return AccessSequential, nil
	case "random":
		return AccessRandom, nil
	case "willneed", "prefetch":
		return AccessWillNeed, nil
	default:
		return AccessDefault, fmt.Errorf("mmap: unknown access pattern %q", s)
	}
}

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when a file is too large to map.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned by ReadAt for a negative offset.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
