// Package distancefit recovers a planar (or optionally spatial) layout of a grid
// mesh whose edge lengths match the lengths measured in 3D.
//
// The unknowns are per-vertex offsets relative to an anchor vertex, flattened
// as u[dims*p+k]. For every edge the predicted value is the sum of squared
// component differences, so the targets are squared lengths. Feeding plain
// distances as targets fits the wrong quantity. Three extra residuals pin the
// anchor at the origin to remove the translation freedom.
package distancefit

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/depthmesh/mesh"
)

// ErrBadGuess is returned when an initial guess does not match the problem size.
var ErrBadGuess = errors.New("initial guess does not match problem size")

// Problem is a fully assembled distance fit: design, targets and the starting layout.
type Problem struct {
	Design       *Design
	Targets      []float64
	InitialGuess []float64
	Dims         int
	Anchor       int
	Edges        []mesh.Edge
}

type problemOptions struct {
	dims int
}

// ProblemOption customizes BuildProblem.
type ProblemOption func(*problemOptions)

// WithDims selects a 2D (default) or 3D layout.
func WithDims(dims int) ProblemOption {
	return func(o *problemOptions) {
		o.dims = dims
	}
}

// BuildProblem assembles the fit for a generated mesh, anchored at its middle vertex.
func BuildProblem(m *mesh.GridMesh, opts ...ProblemOption) (*Problem, error) {
	if m == nil {
		return nil, errors.New("cannot build a distance fit without a mesh")
	}
	o := problemOptions{dims: 2}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dims != 2 && o.dims != 3 {
		return nil, errors.Errorf("layout dimension must be 2 or 3, got %d", o.dims)
	}
	points, err := m.Points()
	if err != nil {
		return nil, err
	}
	edges, err := m.Edges()
	if err != nil {
		return nil, err
	}

	links := make([][2]int, len(edges))
	targets := make([]float64, len(edges)+anchorSlots)
	for i, e := range edges {
		links[i] = [2]int{e.A, e.B}
		targets[i] = e.Target
	}

	anchor := m.MiddleIndex()
	origin := points[anchor]
	guess := make([]float64, o.dims*points.Size())
	for p, pt := range points {
		rel := pt.Sub(origin)
		guess[o.dims*p] = rel.X
		guess[o.dims*p+1] = rel.Y
		if o.dims == 3 {
			guess[o.dims*p+2] = rel.Z
		}
	}

	return &Problem{
		Design:       NewDesign(o.dims, points.Size(), links, anchor),
		Targets:      targets,
		InitialGuess: guess,
		Dims:         o.dims,
		Anchor:       anchor,
		Edges:        edges,
	}, nil
}

// Size returns the number of residuals and unknowns.
func (p *Problem) Size() (residuals, unknowns int) {
	return len(p.Targets), p.Dims * p.Design.points
}

func (p *Problem) checkGuess(u []float64) error {
	_, n := p.Size()
	if len(u) != n {
		return errors.Wrapf(ErrBadGuess, "got %d values, want %d", len(u), n)
	}
	return nil
}

// Offsets reshapes a flat solution into one vector per vertex. In 2D, Z is zero.
func Offsets(solution []float64, dims int) []r3.Vector {
	if dims < 1 {
		return nil
	}
	out := make([]r3.Vector, len(solution)/dims)
	for p := range out {
		v := r3.Vector{X: solution[dims*p]}
		if dims > 1 {
			v.Y = solution[dims*p+1]
		}
		if dims > 2 {
			v.Z = solution[dims*p+2]
		}
		out[p] = v
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
