// Package rimage holds disparity images read from depth sensors and the loaders for them.
package rimage

import (
	"math"

	"github.com/pkg/errors"
)

// ErrMalformedGrid is returned when a disparity grid has the wrong shape.
var ErrMalformedGrid = errors.New("malformed disparity grid")

func newMalformedGridError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedGrid, format, args...)
}

// DisparityMap is a rows x cols grid of raw disparity readings stored row-major.
// It is never modified after construction; Decimate returns a new map.
type DisparityMap struct {
	rows int
	cols int
	data []float64
}

// NewDisparityMap builds a map from row-major data. The data is copied.
func NewDisparityMap(rows, cols int, data []float64) (*DisparityMap, error) {
	if rows < 1 || cols < 1 {
		return nil, newMalformedGridError("invalid size (%d, %d)", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, newMalformedGridError("have %d values for a %dx%d grid", len(data), rows, cols)
	}
	dm := &DisparityMap{rows: rows, cols: cols, data: make([]float64, len(data))}
	copy(dm.data, data)
	return dm, nil
}

// NewDisparityMapFromRows builds a map from a slice of equal-length rows.
func NewDisparityMapFromRows(values [][]float64) (*DisparityMap, error) {
	if len(values) == 0 {
		return nil, newMalformedGridError("no rows")
	}
	cols := len(values[0])
	data := make([]float64, 0, len(values)*cols)
	for r, row := range values {
		if len(row) != cols {
			return nil, newMalformedGridError("row %d has %d columns, expected %d", r, len(row), cols)
		}
		data = append(data, row...)
	}
	return NewDisparityMap(len(values), cols, data)
}

// Rows returns the number of rows.
func (dm *DisparityMap) Rows() int {
	return dm.rows
}

// Cols returns the number of columns.
func (dm *DisparityMap) Cols() int {
	return dm.cols
}

// Size returns rows*cols.
func (dm *DisparityMap) Size() int {
	return len(dm.data)
}

// Index returns the row-major index of (row, col).
func (dm *DisparityMap) Index(row, col int) int {
	return row*dm.cols + col
}

// At returns the reading at (row, col).
func (dm *DisparityMap) At(row, col int) float64 {
	return dm.data[dm.Index(row, col)]
}

// Values returns a copy of the row-major readings.
func (dm *DisparityMap) Values() []float64 {
	out := make([]float64, len(dm.data))
	copy(out, dm.data)
	return out
}

// Decimate returns grid[::stride, ::stride].
func (dm *DisparityMap) Decimate(stride int) (*DisparityMap, error) {
	if stride < 1 {
		return nil, errors.Errorf("decimation stride must be at least 1, got %d", stride)
	}
	if stride == 1 {
		return dm, nil
	}
	rows := (dm.rows + stride - 1) / stride
	cols := (dm.cols + stride - 1) / stride
	out := &DisparityMap{rows: rows, cols: cols, data: make([]float64, 0, rows*cols)}
	for r := 0; r < dm.rows; r += stride {
		for c := 0; c < dm.cols; c += stride {
			out.data = append(out.data, dm.At(r, c))
		}
	}
	return out, nil
}

// MinMax returns the smallest and largest finite readings. ok is false if there are none.
func (dm *DisparityMap) MinMax() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range dm.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
		ok = true
	}
	return min, max, ok
}
