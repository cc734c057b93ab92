package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransE(t *testing.T) {
	h := []float32{1, 0, 0}
	r := []float32{0, 1, 0}
	tail := []float32{1, 1, 0}

	d, err := TransE(h, r, tail, L2)
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-6)

	d, err = TransE(h, r, []float32{1, 1, 2}, L2)
	require.NoError(t, err)
	assert.InDelta(t, 2, d, 1e-6)

	d, err = TransE(h, r, []float32{0, 0, 0}, L1)
	require.NoError(t, err)
	assert.InDelta(t, 2, d, 1e-6)

	// Inputs are not modified.
	assert.Equal(t, []float32{1, 0, 0}, h)
}

func TestTransE_DimensionMismatch(t *testing.T) {
	_, err := TransE([]float32{1}, []float32{1, 2}, []float32{1}, L2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestParseNorm(t *testing.T) {
	n, err := ParseNorm("L1")
	require.NoError(t, err)
	assert.Equal(t, L1, n)
	assert.Equal(t, "l1", n.String())

	n, err = ParseNorm("")
	require.NoError(t, err)
	assert.Equal(t, L2, n)

	_, err = ParseNorm("l3")
	assert.Error(t, err)
}
