package distancefit

import (
	"gonum.org/v1/gonum/mat"
)

// anchorSlots is the number of trailing design columns reserved for pinning the
// anchor vertex. The third slot only carries a value in three dimensions.
const anchorSlots = 3

// Design is the sparse linear map from vertex offsets to per-edge component
// differences. It has dims*N rows and dims*E+3 columns; column dims*i+k holds
// +1 at row dims*a+k and -1 at row dims*b+k for edge i = (a, b). The last three
// columns select the anchor's coordinates.
//
// Design satisfies mat.Matrix so it can be handed to gonum directly, but every
// column has at most two nonzeros, so Apply should be preferred to a dense product.
type Design struct {
	dims   int
	points int
	links  [][2]int
	anchor int
}

var _ mat.Matrix = (*Design)(nil)

// NewDesign builds the design for a vertex count, edge list and anchor vertex.
func NewDesign(dims, points int, links [][2]int, anchor int) *Design {
	return &Design{dims: dims, points: points, links: links, anchor: anchor}
}

// Dims returns (dims*N, dims*E+3).
func (d *Design) Dims() (r, c int) {
	return d.dims * d.points, d.dims*len(d.links) + anchorSlots
}

// At returns the element at row i, column j.
func (d *Design) At(i, j int) float64 {
	r, c := d.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		panic(mat.ErrIndexOutOfRange)
	}
	var v float64
	d.column(j, func(row int, val float64) {
		if row == i {
			v = val
		}
	})
	return v
}

// T returns the implicit transpose.
func (d *Design) T() mat.Matrix {
	return mat.Transpose{Matrix: d}
}

// column calls fn for every nonzero of column j.
func (d *Design) column(j int, fn func(row int, val float64)) {
	edgeCols := d.dims * len(d.links)
	if j < edgeCols {
		link, k := d.links[j/d.dims], j%d.dims
		fn(d.dims*link[0]+k, 1)
		fn(d.dims*link[1]+k, -1)
		return
	}
	if slot := j - edgeCols; slot < d.dims {
		fn(d.dims*d.anchor+slot, 1)
	}
}

// Apply computes v = uᵀM into dst, allocating when dst is nil or too short.
func (d *Design) Apply(dst, u []float64) []float64 {
	r, c := d.Dims()
	if len(u) != r {
		panic(mat.ErrShape)
	}
	if len(dst) < c {
		dst = make([]float64, c)
	}
	dst = dst[:c]
	for j := range dst {
		var sum float64
		d.column(j, func(row int, val float64) {
			sum += val * u[row]
		})
		dst[j] = sum
	}
	return dst
}

// Dense materializes the design.
func (d *Design) Dense() *mat.Dense {
	r, c := d.Dims()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		d.column(j, func(row int, val float64) {
			out.Set(row, j, val)
		})
	}
	return out
}
