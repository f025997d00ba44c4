// Package testutils provides synthetic disparity scenes shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"go.viam.com/test"

	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/rimage/transform"
)

// IdentityDepth treats the disparity value as the depth itself.
var IdentityDepth = transform.DepthModelFunc(func(d float64) float64 { return d })

// FlatScene returns a rows x cols grid at constant depth seen head-on, so the
// projected x/y layout already matches the 3D edge lengths exactly.
func FlatScene(tb testing.TB, rows, cols int, depth, focal float64) (*rimage.DisparityMap, transform.ProjectionModel) {
	tb.Helper()
	values := make([]float64, rows*cols)
	for i := range values {
		values[i] = depth
	}
	dm, err := rimage.NewDisparityMap(rows, cols, values)
	test.That(tb, err, test.ShouldBeNil)
	pm, err := transform.NewProjectionModel(transform.NewGridIntrinsics(focal, rows, cols), IdentityDepth)
	test.That(tb, err, test.ShouldBeNil)
	return dm, pm
}

// TiltedScene returns a grid looking at a plane whose depth grows linearly
// with the column, so the projected x/y layout is foreshortened.
func TiltedScene(tb testing.TB, rows, cols int, depth, slope, focal float64) (*rimage.DisparityMap, transform.ProjectionModel) {
	tb.Helper()
	values := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			values[r*cols+c] = depth + slope*float64(c)
		}
	}
	dm, err := rimage.NewDisparityMap(rows, cols, values)
	test.That(tb, err, test.ShouldBeNil)
	pm, err := transform.NewProjectionModel(transform.NewGridIntrinsics(focal, rows, cols), IdentityDepth)
	test.That(tb, err, test.ShouldBeNil)
	return dm, pm
}

// WriteDataDir writes disparity.txt and params.txt for dm into a fresh temp
// directory and returns its path.
func WriteDataDir(tb testing.TB, dm *rimage.DisparityMap, focal float64) string {
	tb.Helper()
	dir := tb.TempDir()
	f, err := os.Create(filepath.Join(dir, "disparity.txt"))
	test.That(tb, err, test.ShouldBeNil)
	test.That(tb, dm.WriteText(f), test.ShouldBeNil)
	test.That(tb, f.Close(), test.ShouldBeNil)

	params := strconv.FormatFloat(focal, 'g', -1, 64) + " 0 0 0 0 0 0 1\n"
	test.That(tb, os.WriteFile(filepath.Join(dir, "params.txt"), []byte(params), 0o600), test.ShouldBeNil)
	return dir
}
