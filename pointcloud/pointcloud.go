// Package pointcloud defines the ordered point clouds produced by projecting disparity grids.
//
// A PointCloud keeps one entry per grid cell in row-major order, so point p
// came from cell (p / cols, p % cols). Cells whose disparity fell outside the
// calibration domain hold non-finite coordinates; they are kept in place so
// indices stay aligned with the grid, and consumers must filter them.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

// PointCloud is an ordered list of camera-frame points.
type PointCloud []r3.Vector

// New returns a zeroed cloud of the given size.
func New(size int) PointCloud {
	return make(PointCloud, size)
}

// Size returns the number of points, finite or not.
func (pc PointCloud) Size() int {
	return len(pc)
}

// Clone returns a deep copy.
func (pc PointCloud) Clone() PointCloud {
	out := make(PointCloud, len(pc))
	copy(out, pc)
	return out
}

// IsFinite reports whether all three coordinates are finite numbers.
func IsFinite(p r3.Vector) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// FiniteIndices returns the indices of the finite points, in order.
func (pc PointCloud) FiniteIndices() []int {
	return lo.Filter(lo.Range(len(pc)), func(i, _ int) bool {
		return IsFinite(pc[i])
	})
}

// MetaData is a summary of the finite points in a cloud.
type MetaData struct {
	Finite int

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// MetaData computes the bounds of the finite points.
func (pc PointCloud) MetaData() MetaData {
	meta := MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
	for _, p := range pc {
		if !IsFinite(p) {
			continue
		}
		meta.Finite++
		meta.MinX = math.Min(meta.MinX, p.X)
		meta.MaxX = math.Max(meta.MaxX, p.X)
		meta.MinY = math.Min(meta.MinY, p.Y)
		meta.MaxY = math.Max(meta.MaxY, p.Y)
		meta.MinZ = math.Min(meta.MinZ, p.Z)
		meta.MaxZ = math.Max(meta.MaxZ, p.Z)
	}
	return meta
}

// Center returns the midpoint of the bounds.
func (meta MetaData) Center() r3.Vector {
	return r3.Vector{
		X: (meta.MinX + meta.MaxX) / 2,
		Y: (meta.MinY + meta.MaxY) / 2,
		Z: (meta.MinZ + meta.MaxZ) / 2,
	}
}
