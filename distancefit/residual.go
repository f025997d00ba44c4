package distancefit

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Predict fills dst with the model values for u: per edge the sum of squared
// component differences, then the squared anchor coordinates.
func (p *Problem) Predict(dst, u []float64) []float64 {
	m, _ := p.Size()
	if len(dst) < m {
		dst = make([]float64, m)
	}
	dst = dst[:m]
	v := p.Design.Apply(nil, u)
	edges := len(p.Design.links)
	for i := 0; i < edges; i++ {
		var sum float64
		for k := 0; k < p.Dims; k++ {
			x := v[p.Dims*i+k]
			sum += x * x
		}
		dst[i] = sum
	}
	for s := 0; s < anchorSlots; s++ {
		x := v[p.Dims*edges+s]
		dst[edges+s] = x * x
	}
	return dst
}

// Residuals fills dst with predicted minus target.
func (p *Problem) Residuals(dst, u []float64) []float64 {
	dst = p.Predict(dst, u)
	floats.Sub(dst, p.Targets)
	return dst
}

// Cost is the sum of squared residuals at u.
func (p *Problem) Cost(u []float64) float64 {
	r := p.Residuals(nil, u)
	return floats.Dot(r, r)
}

// Jacobian fills dst with d(residual)/du using the closed form: each residual
// is a sum of squared design columns applied to u, so its gradient is
// 2*v[j]*M[:, j] summed over those columns.
func (p *Problem) Jacobian(dst *mat.Dense, u []float64) {
	m, n := p.Size()
	if r, c := dst.Dims(); r != m || c != n {
		panic(mat.ErrShape)
	}
	dst.Zero()
	v := p.Design.Apply(nil, u)
	edges := len(p.Design.links)
	addColumn := func(residual, j int) {
		scale := 2 * v[j]
		if scale == 0 {
			return
		}
		p.Design.column(j, func(row int, val float64) {
			dst.Set(residual, row, dst.At(residual, row)+scale*val)
		})
	}
	for i := 0; i < edges; i++ {
		for k := 0; k < p.Dims; k++ {
			addColumn(i, p.Dims*i+k)
		}
	}
	for s := 0; s < anchorSlots; s++ {
		addColumn(edges+s, p.Dims*edges+s)
	}
}

// NumericJacobian estimates the Jacobian with central finite differences.
// It ignores the problem structure and is meant for checking Jacobian.
func (p *Problem) NumericJacobian(dst *mat.Dense, u []float64) {
	fd.Jacobian(dst, func(y, x []float64) {
		p.Residuals(y, x)
	}, u, &fd.JacobianSettings{
		Formula: fd.Central,
	})
}

// NewJacobian allocates a residuals x unknowns matrix.
func (p *Problem) NewJacobian() *mat.Dense {
	m, n := p.Size()
	return mat.NewDense(m, n, nil)
}
