package cli

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/rimage/transform"
)

// File names expected inside a data directory.
const (
	DisparityFile     = "disparity.txt"
	ParamsFile        = "params.txt"
	SensorMatrixFile  = "kinect.mat"
	SensorImageFile   = "img.png"
	PointsLASFile     = "points.las"
	PointsPCDFile     = "points.pcd"
	MeshPointsFile    = "mesh_points.txt"
	MeshEdgesFile     = "mesh_edges.txt"
	SolutionFile      = "solution.txt"
	HeatMapFile       = "disparity.png"
	InitialLayoutFile = "initial.png"
	FittedLayoutFile  = "fitted.png"
)

func dataDirArg(c *cli.Context) (string, error) {
	if c.Args().Len() != 1 {
		return "", errors.Errorf("expected exactly one <data_dir> argument, got %d", c.Args().Len())
	}
	return c.Args().First(), nil
}

// loadInput reads the disparity grid from dir and pairs it with a projection model.
func (r *runner) loadInput(c *cli.Context, dir string) (*rimage.DisparityMap, transform.ProjectionModel, error) {
	depth, err := r.cfg.DepthModel.Build()
	if err != nil {
		return nil, transform.ProjectionModel{}, err
	}

	var (
		dm    *rimage.DisparityMap
		focal float64
	)
	if c.Bool(flagSensor) {
		capture, err := rimage.LoadSensorCapture(
			filepath.Join(dir, SensorMatrixFile),
			filepath.Join(dir, SensorImageFile),
			c.Bool(flagQuarterTurn))
		if err != nil {
			return nil, transform.ProjectionModel{}, err
		}
		dm = capture.Disparity
		focal = c.Float64(flagSensorFocal)
		w, h := capture.ImageSize()
		r.logger.Debugw("loaded sensor capture",
			"rows", dm.Rows(), "cols", dm.Cols(),
			"image_width", w, "image_height", h)
	} else {
		dm, err = rimage.ParseDisparityFile(filepath.Join(dir, DisparityFile))
		if err != nil {
			return nil, transform.ProjectionModel{}, err
		}
		params, err := rimage.ParseParamsFile(filepath.Join(dir, ParamsFile))
		if err != nil {
			return nil, transform.ProjectionModel{}, err
		}
		focal = params.Focal()
		r.logger.Debugw("loaded disparity", "rows", dm.Rows(), "cols", dm.Cols(), "params", params.String())
	}

	intrinsics := transform.NewGridIntrinsics(focal, dm.Rows(), dm.Cols())
	if r.cfg.Intrinsics != nil {
		intrinsics = *r.cfg.Intrinsics
	}
	pm, err := transform.NewProjectionModel(intrinsics, depth)
	if err != nil {
		return nil, transform.ProjectionModel{}, err
	}
	return dm, pm, nil
}
