package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage"
)

// ProjectionModel turns disparity grids into camera-frame point clouds.
type ProjectionModel struct {
	Intrinsics PinholeIntrinsics
	Depth      DepthModel
}

// NewProjectionModel validates the intrinsics and pairs them with a depth model.
func NewProjectionModel(intrinsics PinholeIntrinsics, depth DepthModel) (ProjectionModel, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return ProjectionModel{}, err
	}
	if depth == nil {
		return ProjectionModel{}, errors.New("projection model needs a depth model")
	}
	return ProjectionModel{Intrinsics: intrinsics, Depth: depth}, nil
}

// DepthFromDisparity converts one reading.
func (pm ProjectionModel) DepthFromDisparity(d float64) float64 {
	return pm.Depth.DepthFromDisparity(d)
}

// DepthsFromDisparity converts a slice of readings.
func (pm ProjectionModel) DepthsFromDisparity(ds []float64) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = pm.Depth.DepthFromDisparity(d)
	}
	return out
}

// PointsFromDisparity projects every grid cell (r, c) to
//
//	x = (c - ppx) * z / f
//	y = (r - ppy) * z / f
//	z = depth(grid[r, c])
//
// in row-major order. Out-of-domain readings give non-finite points.
func (pm ProjectionModel) PointsFromDisparity(dm *rimage.DisparityMap) pointcloud.PointCloud {
	pc := pointcloud.New(dm.Size())
	for r := 0; r < dm.Rows(); r++ {
		for c := 0; c < dm.Cols(); c++ {
			z := pm.Depth.DepthFromDisparity(dm.At(r, c))
			x, y, z := pm.Intrinsics.PixelToPoint(float64(c), float64(r), z)
			pc[dm.Index(r, c)] = r3.Vector{X: x, Y: y, Z: z}
		}
	}
	return pc
}

// Rescale returns a copy whose intrinsics are divided by factor.
func (pm ProjectionModel) Rescale(factor int) ProjectionModel {
	return ProjectionModel{Intrinsics: pm.Intrinsics.Rescale(float64(factor)), Depth: pm.Depth}
}
