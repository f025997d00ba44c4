package rimage

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNewDisparityMap(t *testing.T) {
	_, err := NewDisparityMap(0, 3, nil)
	test.That(t, errors.Is(err, ErrMalformedGrid), test.ShouldBeTrue)

	_, err = NewDisparityMap(2, 2, []float64{1, 2, 3})
	test.That(t, errors.Is(err, ErrMalformedGrid), test.ShouldBeTrue)

	data := []float64{1, 2, 3, 4, 5, 6}
	dm, err := NewDisparityMap(2, 3, data)
	test.That(t, err, test.ShouldBeNil)
	data[0] = 100
	test.That(t, dm.At(0, 0), test.ShouldEqual, 1.)
	test.That(t, dm.At(1, 2), test.ShouldEqual, 6.)
	test.That(t, dm.Index(1, 0), test.ShouldEqual, 3)
	test.That(t, dm.Size(), test.ShouldEqual, 6)
}

func TestNewDisparityMapFromRows(t *testing.T) {
	_, err := NewDisparityMapFromRows(nil)
	test.That(t, errors.Is(err, ErrMalformedGrid), test.ShouldBeTrue)

	_, err = NewDisparityMapFromRows([][]float64{{1, 2}, {3}})
	test.That(t, errors.Is(err, ErrMalformedGrid), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "row 1 has 1 columns")

	dm, err := NewDisparityMapFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.Rows(), test.ShouldEqual, 3)
	test.That(t, dm.Cols(), test.ShouldEqual, 2)
	test.That(t, dm.Values(), test.ShouldResemble, []float64{1, 2, 3, 4, 5, 6})
}

func TestDecimate(t *testing.T) {
	rows := make([][]float64, 5)
	for r := range rows {
		rows[r] = make([]float64, 7)
		for c := range rows[r] {
			rows[r][c] = float64(10*r + c)
		}
	}
	dm, err := NewDisparityMapFromRows(rows)
	test.That(t, err, test.ShouldBeNil)

	_, err = dm.Decimate(0)
	test.That(t, err, test.ShouldNotBeNil)

	same, err := dm.Decimate(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same.Values(), test.ShouldResemble, dm.Values())

	small, err := dm.Decimate(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, small.Rows(), test.ShouldEqual, 2)
	test.That(t, small.Cols(), test.ShouldEqual, 3)
	test.That(t, small.Values(), test.ShouldResemble, []float64{0, 3, 6, 30, 33, 36})

	// the source is untouched
	test.That(t, dm.Rows(), test.ShouldEqual, 5)
	test.That(t, dm.At(4, 6), test.ShouldEqual, 46.)
}

func TestMinMax(t *testing.T) {
	dm, err := NewDisparityMap(1, 4, []float64{math.NaN(), 3, math.Inf(1), -2})
	test.That(t, err, test.ShouldBeNil)
	min, max, ok := dm.MinMax()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, min, test.ShouldEqual, -2.)
	test.That(t, max, test.ShouldEqual, 3.)

	dm, err = NewDisparityMap(1, 1, []float64{math.NaN()})
	test.That(t, err, test.ShouldBeNil)
	_, _, ok = dm.MinMax()
	test.That(t, ok, test.ShouldBeFalse)
}
