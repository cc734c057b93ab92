package subgraph

import (
	"errors"

	gojson "github.com/goccy/go-json"
)

// ErrRaggedRows is returned by FromRows when rows differ in length.
var ErrRaggedRows = errors.New("subgraph: rows have different lengths")

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	rows int
	cols int
	data []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// FromRows copies rows into a new matrix. Zero rows give a 0 x 0 matrix.
func FromRows(rows [][]float32) (Matrix, error) {
	return fromRows(rows, 0)
}

// fromRows is FromRows with the column count to use when rows is empty.
func fromRows(rows [][]float32, cols int) (Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, cols), nil
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, r := range rows {
		if len(r) != m.cols {
			return Matrix{}, ErrRaggedRows
		}
		copy(m.Row(i), r)
	}
	return m, nil
}

// Dims returns the number of rows and columns.
func (m Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

// Row returns row i. The slice aliases the matrix.
func (m Matrix) Row(i int) []float32 {
	start := i * m.cols
	end := start + m.cols
	return m.data[start:end:end]
}

// Data returns the row-major backing slice.
func (m Matrix) Data() []float32 { return m.data }

// Rows returns the matrix as a slice of row views.
func (m Matrix) Rows() [][]float32 {
	out := make([][]float32, m.rows)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// MarshalJSON encodes the matrix as an array of rows.
func (m Matrix) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(m.Rows())
}

// UnmarshalJSON decodes an array of rows.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var rows [][]float32
	if err := gojson.Unmarshal(data, &rows); err != nil {
		return err
	}
	out, err := FromRows(rows)
	if err != nil {
		return err
	}
	*m = out
	return nil
}
