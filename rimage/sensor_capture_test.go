package rimage

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lmittmann/ppm"
	"go.viam.com/test"
	"golang.org/x/image/bmp"
)

func writeTestImage(t *testing.T, fn string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	f, err := os.Create(fn)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	switch filepath.Ext(fn) {
	case ".bmp":
		test.That(t, bmp.Encode(f, img), test.ShouldBeNil)
	case ".ppm":
		test.That(t, ppm.Encode(f, img), test.ShouldBeNil)
	default:
		test.That(t, png.Encode(f, img), test.ShouldBeNil)
	}
}

func TestLoadSensorCapture(t *testing.T) {
	dir := t.TempDir()
	matrix := filepath.Join(dir, "kinect.mat")
	test.That(t, os.WriteFile(matrix, []byte("500 501\n502 503\n504 505\n"), 0o600), test.ShouldBeNil)

	bmpPath := filepath.Join(dir, "img.bmp")
	writeTestImage(t, bmpPath, 8, 6)
	capture, err := LoadSensorCapture(matrix, bmpPath, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, capture.Disparity.Rows(), test.ShouldEqual, 3)
	w, h := capture.ImageSize()
	test.That(t, w, test.ShouldEqual, 8)
	test.That(t, h, test.ShouldEqual, 6)

	pngPath := filepath.Join(dir, "img.png")
	writeTestImage(t, pngPath, 8, 6)
	capture, err = LoadSensorCapture(matrix, pngPath, true)
	test.That(t, err, test.ShouldBeNil)
	w, h = capture.ImageSize()
	test.That(t, w, test.ShouldEqual, 6)
	test.That(t, h, test.ShouldEqual, 8)
	// clockwise: the red top row ends up as the right column
	for y := 0; y < h; y++ {
		r, _, _, _ := capture.Image.At(w-1, y).RGBA()
		test.That(t, r, test.ShouldEqual, uint32(0xffff))
		r, _, _, _ = capture.Image.At(0, y).RGBA()
		test.That(t, r, test.ShouldEqual, uint32(0))
	}

	// a 3x2 image turns into 2x3 with red only in the last column
	small := filepath.Join(dir, "small.png")
	writeTestImage(t, small, 3, 2)
	capture, err = LoadSensorCapture(matrix, small, true)
	test.That(t, err, test.ShouldBeNil)
	w, h = capture.ImageSize()
	test.That(t, w, test.ShouldEqual, 2)
	test.That(t, h, test.ShouldEqual, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := capture.Image.At(x, y).RGBA()
			test.That(t, r == 0xffff, test.ShouldEqual, x == w-1)
		}
	}

	ppmPath := filepath.Join(dir, "img.ppm")
	writeTestImage(t, ppmPath, 4, 2)
	capture, err = LoadSensorCapture(matrix, ppmPath, false)
	test.That(t, err, test.ShouldBeNil)
	w, _ = capture.ImageSize()
	test.That(t, w, test.ShouldEqual, 4)

	notImage := filepath.Join(dir, "img.jpg")
	test.That(t, os.WriteFile(notImage, []byte("nope"), 0o600), test.ShouldBeNil)
	_, err = LoadSensorCapture(matrix, notImage, false)
	test.That(t, err, test.ShouldNotBeNil)
}
