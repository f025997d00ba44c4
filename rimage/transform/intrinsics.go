// Package transform maps disparity readings to metric depth and projects
// disparity grids to camera-frame points through a pinhole model.
package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ErrNoIntrinsics is when a camera does not have usable intrinsic parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not valid.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeIntrinsics holds the single focal length and optical center of a
// distortion-free pinhole camera, in pixels.
type PinholeIntrinsics struct {
	Focal float64 `json:"focal_px"`
	Ppx   float64 `json:"ppx"`
	Ppy   float64 `json:"ppy"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CheckValid checks that the focal length is positive and the center finite.
func (params *PinholeIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("intrinsics do not exist")
	}
	if !isFinite(params.Focal) || params.Focal <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length %#v", params.Focal))
	}
	if !isFinite(params.Ppx) || !isFinite(params.Ppy) {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid optical center (%#v, %#v)", params.Ppx, params.Ppy))
	}
	return nil
}

// DefaultOpticalCenter is the center of a rows x cols image using 1-based pixel
// coordinates, 0.5*(1+cols), 0.5*(1+rows). Rendered scenes carry no calibrated center.
func DefaultOpticalCenter(rows, cols int) (ppx, ppy float64) {
	return 0.5 * float64(1+cols), 0.5 * float64(1+rows)
}

// NewGridIntrinsics returns intrinsics with the given focal length and the
// default optical center of a rows x cols disparity grid.
func NewGridIntrinsics(focal float64, rows, cols int) PinholeIntrinsics {
	ppx, ppy := DefaultOpticalCenter(rows, cols)
	return PinholeIntrinsics{Focal: focal, Ppx: ppx, Ppy: ppy}
}

// Rescale returns intrinsics for an image subsampled by factor: focal length and
// both center components are divided by it.
func (params PinholeIntrinsics) Rescale(factor float64) PinholeIntrinsics {
	return PinholeIntrinsics{
		Focal: params.Focal / factor,
		Ppx:   params.Ppx / factor,
		Ppy:   params.Ppy / factor,
	}
}

// PixelToPoint transforms a pixel (x = column, y = row) at depth z to a camera-frame point.
func (params PinholeIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	xOverZ := (x - params.Ppx) / params.Focal
	yOverZ := (y - params.Ppy) / params.Focal
	return xOverZ * z, yOverZ * z, z
}

// PointToPixel projects a camera-frame point back onto the image plane.
// Points at zero depth map to (-1, -1).
func (params PinholeIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0 {
		return (x/z)*params.Focal + params.Ppx, (y/z)*params.Focal + params.Ppy
	}
	return -1.0, -1.0
}

// NewPinholeIntrinsicsFromJSONFile reads intrinsics from a JSON file.
func NewPinholeIntrinsicsFromJSONFile(jsonPath string) (*PinholeIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics, nil
}
