// Package mesh builds the regular lattice mesh over a projected disparity grid.
//
// Every grid cell becomes a vertex. Vertices are linked to their right
// neighbor, the neighbor below, and both lower diagonals, which gives
// 4*(cols-1)*(rows-1) + cols + rows - 2 edges. Each edge remembers the
// squared distance between its endpoints as first projected; the distancefit
// package later tries to reproduce those squared lengths.
package mesh

import (
	"github.com/pkg/errors"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/rimage/transform"
)

// ErrNotGenerated is returned when points and edges are needed before GeneratePointsAndEdges ran.
var ErrNotGenerated = errors.New("mesh points and edges have not been generated")

// Edge links points A and B. Target is the squared Euclidean distance between
// their initial positions, not the distance itself.
type Edge struct {
	A      int
	B      int
	Target float64
}

// GridMesh owns a disparity grid, its projection model, and once generated the
// projected points and edge list.
type GridMesh struct {
	grid       *rimage.DisparityMap
	projection transform.ProjectionModel

	points pointcloud.PointCloud
	edges  []Edge
}

// NewGridMesh validates its inputs and returns an ungenerated mesh.
func NewGridMesh(grid *rimage.DisparityMap, projection transform.ProjectionModel) (*GridMesh, error) {
	if grid == nil || grid.Size() == 0 {
		return nil, errors.Wrap(rimage.ErrMalformedGrid, "mesh needs a non-empty grid")
	}
	if err := projection.Intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if projection.Depth == nil {
		return nil, errors.New("mesh needs a depth model")
	}
	return &GridMesh{grid: grid, projection: projection}, nil
}

// Grid returns the disparity grid.
func (m *GridMesh) Grid() *rimage.DisparityMap {
	return m.grid
}

// Projection returns the projection model.
func (m *GridMesh) Projection() transform.ProjectionModel {
	return m.projection
}

// Rows returns the grid height.
func (m *GridMesh) Rows() int {
	return m.grid.Rows()
}

// Cols returns the grid width.
func (m *GridMesh) Cols() int {
	return m.grid.Cols()
}

// Decimate returns a new, ungenerated mesh over grid[::stride, ::stride] with
// the intrinsics divided by stride. The receiver is left as is.
func (m *GridMesh) Decimate(stride int) (*GridMesh, error) {
	grid, err := m.grid.Decimate(stride)
	if err != nil {
		return nil, err
	}
	return &GridMesh{grid: grid, projection: m.projection.Rescale(stride)}, nil
}

// GeneratePointsAndEdges projects the grid and builds the edge list. Repeated
// calls produce identical results.
func (m *GridMesh) GeneratePointsAndEdges() (pointcloud.PointCloud, []Edge) {
	points := m.projection.PointsFromDisparity(m.grid)
	links := Connectivity(m.Rows(), m.Cols())
	edges := make([]Edge, len(links))
	for i, link := range links {
		a, b := link[0], link[1]
		edges[i] = Edge{A: a, B: b, Target: points[a].Sub(points[b]).Norm2()}
	}
	m.points = points
	m.edges = edges
	return points, edges
}

// Generated reports whether points and edges are available.
func (m *GridMesh) Generated() bool {
	return m.points != nil
}

// Points returns the generated points. Callers must not modify them.
func (m *GridMesh) Points() (pointcloud.PointCloud, error) {
	if !m.Generated() {
		return nil, ErrNotGenerated
	}
	return m.points, nil
}

// Edges returns the generated edges. Callers must not modify them.
func (m *GridMesh) Edges() ([]Edge, error) {
	if !m.Generated() {
		return nil, ErrNotGenerated
	}
	return m.edges, nil
}

// MiddleIndex is the index of the vertex at (rows/2, cols/2), used as the origin.
func (m *GridMesh) MiddleIndex() int {
	return (m.Rows()/2)*m.Cols() + m.Cols()/2
}

// EdgeCount is the number of edges Connectivity produces for a rows x cols grid.
func EdgeCount(rows, cols int) int {
	return 4*(cols-1)*(rows-1) + cols + rows - 2
}

// Connectivity lists the index pairs of a rows x cols lattice. For each point p,
// in order: right neighbor, then (if not on the last row) the point below, the
// lower-left diagonal and the lower-right diagonal, skipping links that would
// leave the grid.
func Connectivity(rows, cols int) [][2]int {
	if rows < 1 || cols < 1 {
		return nil
	}
	links := make([][2]int, 0, EdgeCount(rows, cols))
	for p := 0; p < rows*cols; p++ {
		notLastCol := (p+1)%cols != 0
		if notLastCol {
			links = append(links, [2]int{p, p + 1})
		}
		if p < cols*(rows-1) {
			links = append(links, [2]int{p, p + cols})
			if p%cols != 0 {
				links = append(links, [2]int{p, p + cols - 1})
			}
			if notLastCol {
				links = append(links, [2]int{p, p + cols + 1})
			}
		}
	}
	return links
}
