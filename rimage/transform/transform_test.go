package transform

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/depthmesh/rimage"
)

func TestCheckValid(t *testing.T) {
	var nilParams *PinholeIntrinsics
	test.That(t, errors.Is(nilParams.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)

	bad := []PinholeIntrinsics{
		{Focal: 0, Ppx: 1, Ppy: 1},
		{Focal: -3, Ppx: 1, Ppy: 1},
		{Focal: math.NaN(), Ppx: 1, Ppy: 1},
		{Focal: 500, Ppx: math.Inf(1), Ppy: 1},
	}
	for _, params := range bad {
		err := params.CheckValid()
		test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
	}
	good := NewGridIntrinsics(525, 480, 640)
	test.That(t, good.CheckValid(), test.ShouldBeNil)
	test.That(t, good.Ppx, test.ShouldEqual, 320.5)
	test.That(t, good.Ppy, test.ShouldEqual, 240.5)
}

func TestRescale(t *testing.T) {
	params := PinholeIntrinsics{Focal: 600, Ppx: 320.5, Ppy: 240.5}
	small := params.Rescale(60)
	test.That(t, small.Focal, test.ShouldEqual, 10.)
	test.That(t, small.Ppx, test.ShouldAlmostEqual, 320.5/60)
	test.That(t, small.Ppy, test.ShouldAlmostEqual, 240.5/60)
	// the receiver is a value; the original is untouched
	test.That(t, params.Focal, test.ShouldEqual, 600.)
}

func TestPixelToPointRoundTrip(t *testing.T) {
	params := PinholeIntrinsics{Focal: 500, Ppx: 10, Ppy: 20}
	x, y, z := params.PixelToPoint(15, 10, 2)
	test.That(t, x, test.ShouldAlmostEqual, 0.02)
	test.That(t, y, test.ShouldAlmostEqual, -0.04)
	test.That(t, z, test.ShouldEqual, 2.)
	px, py := params.PointToPixel(x, y, z)
	test.That(t, px, test.ShouldAlmostEqual, 15.)
	test.That(t, py, test.ShouldAlmostEqual, 10.)
	px, py = params.PointToPixel(1, 1, 0)
	test.That(t, px, test.ShouldEqual, -1.)
	test.That(t, py, test.ShouldEqual, -1.)
}

func TestIntrinsicsFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intrinsics.json")
	test.That(t, os.WriteFile(path, []byte(`{"focal_px": 580, "ppx": 319.5, "ppy": 239.5}`), 0o600), test.ShouldBeNil)
	params, err := NewPinholeIntrinsicsFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *params, test.ShouldResemble, PinholeIntrinsics{Focal: 580, Ppx: 319.5, Ppy: 239.5})

	badPath := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(badPath, []byte(`{"focal_px": 0}`), 0o600), test.ShouldBeNil)
	_, err = NewPinholeIntrinsicsFromJSONFile(badPath)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
}

func TestDepthModels(t *testing.T) {
	inv := InverseDepthModel{A: 350, B: 1100}
	test.That(t, inv.DepthFromDisparity(400), test.ShouldAlmostEqual, 0.5)
	test.That(t, math.IsInf(inv.DepthFromDisparity(1100), 1), test.ShouldBeTrue)

	rl := ReciprocalLinearDepthModel{Scale: 0.5, Offset: 1}
	test.That(t, rl.DepthFromDisparity(2), test.ShouldEqual, 0.5)

	kinect := KinectDepthModel.DepthFromDisparity(500)
	test.That(t, kinect, test.ShouldAlmostEqual, 1/(-0.0030711016*500+3.3309495161))

	doubled := DepthModelFunc(func(d float64) float64 { return 2 * d })
	test.That(t, doubled.DepthFromDisparity(3), test.ShouldEqual, 6.)
}

func TestDepthModelRegistry(t *testing.T) {
	test.That(t, RegisteredDepthModels(), test.ShouldResemble,
		[]string{InverseDepthModelName, KinectDepthModelName, ReciprocalLinearDepthModelName})

	model, err := NewDepthModel(InverseDepthModelName, map[string]interface{}{"a": 350, "b": "1100"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model, test.ShouldResemble, InverseDepthModel{A: 350, B: 1100})

	_, err = NewDepthModel(InverseDepthModelName, map[string]interface{}{"b": 1100})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewDepthModel(InverseDepthModelName, map[string]interface{}{"a": 1, "c": 2})
	test.That(t, err, test.ShouldNotBeNil)

	model, err = NewDepthModel(KinectDepthModelName, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model, test.ShouldResemble, KinectDepthModel)

	_, err = NewDepthModel("stereo", nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown depth model")

	test.That(t, func() {
		RegisterDepthModel(InverseDepthModelName, nil)
	}, test.ShouldPanic)
}

func TestPointsFromDisparity(t *testing.T) {
	dm, err := rimage.NewDisparityMapFromRows([][]float64{
		{1, 1, 1},
		{1, 2, 1},
	})
	test.That(t, err, test.ShouldBeNil)
	depth := DepthModelFunc(func(d float64) float64 { return 2 * d })
	pm, err := NewProjectionModel(PinholeIntrinsics{Focal: 2, Ppx: 1, Ppy: 0.5}, depth)
	test.That(t, err, test.ShouldBeNil)

	pc := pm.PointsFromDisparity(dm)
	test.That(t, pc.Size(), test.ShouldEqual, 6)
	// p = r*cols + c
	test.That(t, pc[0].X, test.ShouldAlmostEqual, -1.)
	test.That(t, pc[0].Y, test.ShouldAlmostEqual, -0.5)
	test.That(t, pc[0].Z, test.ShouldAlmostEqual, 2.)
	test.That(t, pc[4].X, test.ShouldAlmostEqual, 0.)
	test.That(t, pc[4].Y, test.ShouldAlmostEqual, 1.)
	test.That(t, pc[4].Z, test.ShouldAlmostEqual, 4.)
	test.That(t, pc[5].X, test.ShouldAlmostEqual, 1.)

	test.That(t, pm.DepthsFromDisparity([]float64{1, 3}), test.ShouldResemble, []float64{2, 6})
	test.That(t, pm.DepthFromDisparity(4), test.ShouldEqual, 8.)

	_, err = NewProjectionModel(PinholeIntrinsics{}, depth)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewProjectionModel(PinholeIntrinsics{Focal: 1}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProjectionLinearity(t *testing.T) {
	dm, err := rimage.NewDisparityMapFromRows([][]float64{{3, 3}, {3, 3}})
	test.That(t, err, test.ShouldBeNil)
	intrinsics := PinholeIntrinsics{Focal: 7, Ppx: 0.25, Ppy: 0.75}
	near, err := NewProjectionModel(intrinsics, DepthModelFunc(func(d float64) float64 { return d }))
	test.That(t, err, test.ShouldBeNil)
	far, err := NewProjectionModel(intrinsics, DepthModelFunc(func(d float64) float64 { return 2 * d }))
	test.That(t, err, test.ShouldBeNil)

	a := near.PointsFromDisparity(dm)
	b := far.PointsFromDisparity(dm)
	for i := range a {
		test.That(t, b[i].X, test.ShouldAlmostEqual, 2*a[i].X)
		test.That(t, b[i].Y, test.ShouldAlmostEqual, 2*a[i].Y)
		test.That(t, b[i].Z, test.ShouldAlmostEqual, 2*a[i].Z)
	}
}

func TestNonFiniteDisparityPropagates(t *testing.T) {
	dm, err := rimage.NewDisparityMapFromRows([][]float64{{1100, 400}})
	test.That(t, err, test.ShouldBeNil)
	pm, err := NewProjectionModel(PinholeIntrinsics{Focal: 1, Ppx: 0, Ppy: 0}, InverseDepthModel{A: 350, B: 1100})
	test.That(t, err, test.ShouldBeNil)
	pc := pm.PointsFromDisparity(dm)
	test.That(t, math.IsInf(pc[0].Z, 1), test.ShouldBeTrue)
	test.That(t, math.IsNaN(pc[0].X), test.ShouldBeTrue)
	test.That(t, pc.FiniteIndices(), test.ShouldResemble, []int{1})
}

func TestDecimationConsistency(t *testing.T) {
	rows, cols, stride := 9, 13, 4
	values := make([][]float64, rows)
	for r := range values {
		values[r] = make([]float64, cols)
		for c := range values[r] {
			values[r][c] = 500 + float64(r*c%7)
		}
	}
	dm, err := rimage.NewDisparityMapFromRows(values)
	test.That(t, err, test.ShouldBeNil)
	pm, err := NewProjectionModel(NewGridIntrinsics(580, rows, cols), KinectDepthModel)
	test.That(t, err, test.ShouldBeNil)
	full := pm.PointsFromDisparity(dm)

	small, err := dm.Decimate(stride)
	test.That(t, err, test.ShouldBeNil)
	reduced := pm.Rescale(stride).PointsFromDisparity(small)
	test.That(t, reduced.Size(), test.ShouldEqual, small.Rows()*small.Cols())
	for r := 0; r < small.Rows(); r++ {
		for c := 0; c < small.Cols(); c++ {
			got := reduced[small.Index(r, c)]
			want := full[dm.Index(r*stride, c*stride)]
			test.That(t, got.X, test.ShouldAlmostEqual, want.X)
			test.That(t, got.Y, test.ShouldAlmostEqual, want.Y)
			test.That(t, got.Z, test.ShouldAlmostEqual, want.Z)
		}
	}
}
