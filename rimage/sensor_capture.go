package rimage

import (
	"image"
	// register decoders for the companion image.
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"
	"go.viam.com/utils"
	_ "golang.org/x/image/bmp"
)

// SensorCapture is a raw capture from a structured-light sensor: the disparity
// matrix and the companion color image taken alongside it.
type SensorCapture struct {
	Disparity   *DisparityMap
	// Image is oriented like the disparity grid.
	Image       image.Image
	// QuarterTurn is set when the companion image was stored turned a quarter
	// counter-clockwise relative to the sensor. Image has been turned back clockwise.
	QuarterTurn bool
}

// LoadSensorCapture reads a disparity matrix file and its companion image (bmp,
// png, jpeg or ppm). With quarterTurn the image is rotated 90 degrees
// clockwise on load, so its top row becomes the right column.
func LoadSensorCapture(matrixPath, imagePath string, quarterTurn bool) (*SensorCapture, error) {
	dm, err := ParseDisparityFile(matrixPath)
	if err != nil {
		return nil, err
	}
	img, err := readImage(imagePath)
	if err != nil {
		return nil, err
	}
	if quarterTurn {
		img = imaging.Rotate270(img)
	}
	return &SensorCapture{Disparity: dm, Image: img, QuarterTurn: quarterTurn}, nil
}

func readImage(fn string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %q", fn)
	}
	if img.Bounds().Empty() {
		return nil, errors.Errorf("image %q (%s) is empty", fn, format)
	}
	return img, nil
}

// ImageSize returns the width and height of the companion image as seen by the sensor.
func (sc *SensorCapture) ImageSize() (width, height int) {
	b := sc.Image.Bounds()
	return b.Dx(), b.Dy()
}
