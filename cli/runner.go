package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/depthmesh/config"
	"go.viam.com/depthmesh/distancefit"
	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/mesh"
	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/vis"
)

// runner carries the state shared by every command of one invocation.
type runner struct {
	cfg     *config.Config
	logger  logging.Logger
	logFile *logging.FileAppender
}

func (r *runner) setup(c *cli.Context) error {
	if c.Bool(flagDebug) {
		r.logger = logging.NewDebugLogger("depthmesh")
	} else {
		r.logger = logging.NewLogger("depthmesh")
	}

	r.cfg = config.Default()
	if path := c.String(flagConfig); path != "" {
		cfg, err := config.Read(path)
		if err != nil {
			return err
		}
		r.cfg = cfg
	}
	if dir := c.String(flagOutput); dir != "" {
		r.cfg.Output.Dir = dir
	}
	if path := c.String(flagLogFile); path != "" {
		r.cfg.LogFile = path
	}
	if r.cfg.LogLevel != "" && !c.Bool(flagDebug) {
		level, err := logging.LevelFromString(r.cfg.LogLevel)
		if err != nil {
			return err
		}
		r.logger.SetLevel(level)
	}
	if r.cfg.LogFile != "" {
		r.logFile = logging.NewFileAppender(r.cfg.LogFile, 10, 3)
		r.logger.AddAppender(r.logFile)
	}
	return nil
}

func (r *runner) close(c *cli.Context) error {
	var err error
	if r.logger != nil {
		// stdout cannot always be synced; only the log file matters here
		utils.UncheckedError(r.logger.Sync())
	}
	if r.logFile != nil {
		err = multierr.Combine(err, r.logFile.Close())
	}
	return err
}

func (r *runner) outputPath(name string) (string, error) {
	if err := os.MkdirAll(r.cfg.Output.Dir, 0o750); err != nil {
		return "", errors.Wrapf(err, "cannot create output dir %q", r.cfg.Output.Dir)
	}
	return filepath.Join(r.cfg.Output.Dir, name), nil
}

// writeFile creates name in the output dir and hands it to write.
func (r *runner) writeFile(name string, write func(f *os.File) error) (string, error) {
	path, err := r.outputPath(name)
	if err != nil {
		return "", err
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := multierr.Combine(write(f), f.Close()); err != nil {
		return "", errors.Wrapf(err, "writing %q", path)
	}
	return path, nil
}

func (r *runner) plotsEnabled(c *cli.Context) bool {
	if c.IsSet(flagPlots) {
		return c.Bool(flagPlots)
	}
	return r.cfg.Output.Plots
}

func (r *runner) projectAction(c *cli.Context) error {
	dir, err := dataDirArg(c)
	if err != nil {
		return err
	}
	dm, pm, err := r.loadInput(c, dir)
	if err != nil {
		return err
	}
	cloud := pm.PointsFromDisparity(dm)
	meta := cloud.MetaData()
	r.logger.Infow("projected disparity", "points", cloud.Size(), "finite", meta.Finite, "center", meta.Center())

	pcdType, err := pointcloud.PCDTypeFromString(r.cfg.Output.PCDFormat)
	if err != nil {
		return err
	}
	path, err := r.writeFile(PointsPCDFile, func(f *os.File) error {
		return pointcloud.ToOrganizedPCD(cloud, dm.Rows(), dm.Cols(), f, pcdType)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d points to %s\n", cloud.Size(), path)

	if r.cfg.Output.LAS {
		lasPath, err := r.outputPath(PointsLASFile)
		if err != nil {
			return err
		}
		if err := pointcloud.WriteToLASFile(cloud, lasPath); err != nil {
			return errors.Wrapf(err, "writing %q", lasPath)
		}
		fmt.Fprintf(c.App.Writer, "wrote %d finite points to %s\n", meta.Finite, lasPath)
	}

	if r.plotsEnabled(c) {
		plotPath, err := r.outputPath(HeatMapFile)
		if err != nil {
			return err
		}
		if err := vis.DisparityHeatMap(dm, plotPath); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %s\n", plotPath)
	}
	return nil
}

// buildMesh loads the input, decimates it and generates points and edges.
func (r *runner) buildMesh(c *cli.Context) (*mesh.GridMesh, error) {
	dir, err := dataDirArg(c)
	if err != nil {
		return nil, err
	}
	dm, pm, err := r.loadInput(c, dir)
	if err != nil {
		return nil, err
	}
	full, err := mesh.NewGridMesh(dm, pm)
	if err != nil {
		return nil, err
	}
	stride := r.cfg.Stride
	if c.IsSet(flagStride) {
		stride = c.Int(flagStride)
	}
	m, err := full.Decimate(stride)
	if err != nil {
		return nil, err
	}
	points, edges := m.GeneratePointsAndEdges()
	r.logger.Infow("generated mesh",
		"stride", stride, "rows", m.Rows(), "cols", m.Cols(),
		"points", points.Size(), "edges", len(edges))
	if finite := len(points.FiniteIndices()); finite != points.Size() {
		r.logger.Warnw("mesh has points outside the depth model's domain", "non_finite", points.Size()-finite)
	}
	if r.plotsEnabled(c) {
		plotPath, err := r.outputPath(HeatMapFile)
		if err != nil {
			return nil, err
		}
		if err := vis.DisparityHeatMap(m.Grid(), plotPath); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (r *runner) meshAction(c *cli.Context) error {
	m, err := r.buildMesh(c)
	if err != nil {
		return err
	}
	points, err := m.Points()
	if err != nil {
		return err
	}
	edges, err := m.Edges()
	if err != nil {
		return err
	}
	pointsPath, err := r.writeFile(MeshPointsFile, func(f *os.File) error {
		return mesh.WritePoints(f, points)
	})
	if err != nil {
		return err
	}
	edgesPath, err := r.writeFile(MeshEdgesFile, func(f *os.File) error {
		return mesh.WriteEdges(f, edges)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d points to %s and %d edges to %s\n",
		points.Size(), pointsPath, len(edges), edgesPath)
	return nil
}

func (r *runner) fitAction(c *cli.Context) error {
	m, err := r.buildMesh(c)
	if err != nil {
		return err
	}
	problem, err := distancefit.BuildProblem(m, distancefit.WithDims(r.cfg.Solver.Dims))
	if err != nil {
		return err
	}
	solver, err := r.cfg.Solver.Solver(r.logger.Sublogger("fit"))
	if err != nil {
		return err
	}

	ctx := c.Context
	if timeout := c.Duration(flagTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	initialCost := problem.Cost(problem.InitialGuess)
	res, err := solver.Solve(ctx, problem, problem.InitialGuess)
	if err != nil && res == nil {
		return err
	}
	if err != nil {
		r.logger.Warnw("fit stopped early, keeping the best layout so far", "error", err)
	}
	r.logger.Infow("fit finished",
		"initial_error", initialCost,
		"final_error", res.FinalResidual,
		"converged", res.Converged,
		"status", res.Status,
		"iterations", res.Iterations)
	if !res.Converged {
		r.logger.Warnw("fit did not converge", "status", res.Status)
	}
	errStats, statsErr := distancefit.EdgeErrorStats(problem, res.Solution)
	if statsErr == nil {
		r.logger.Infow("edge length error",
			"mean", errStats.Mean, "median", errStats.Median,
			"max", errStats.Max, "rms", errStats.RMS)
		fmt.Fprintln(c.App.Writer, errStats.String())
	} else {
		r.logger.Debugw("no edge error statistics", "error", statsErr)
	}
	if bins := c.Int(flagBins); bins > 0 && statsErr == nil {
		if herr := distancefit.WriteErrorHistogram(c.App.Writer, problem, res.Solution, bins); herr != nil {
			return multierr.Combine(err, herr)
		}
	}

	offsets := distancefit.Offsets(res.Solution, problem.Dims)
	path, werr := r.writeFile(SolutionFile, func(f *os.File) error {
		return mesh.WritePoints(f, offsets)
	})
	if werr != nil {
		return multierr.Combine(err, werr)
	}
	fmt.Fprintf(c.App.Writer, "final error %g (converged: %t), wrote %d offsets to %s\n",
		res.FinalResidual, res.Converged, len(offsets), path)

	if r.plotsEnabled(c) {
		edges, eerr := m.Edges()
		if eerr != nil {
			return multierr.Combine(err, eerr)
		}
		for _, layout := range []struct {
			name, title string
			solution    []float64
		}{
			{InitialLayoutFile, "initial layout", problem.InitialGuess},
			{FittedLayoutFile, "fitted layout", res.Solution},
		} {
			plotPath, perr := r.outputPath(layout.name)
			if perr == nil {
				perr = vis.Wireframe(distancefit.Offsets(layout.solution, problem.Dims), edges, layout.title, plotPath)
			}
			if perr != nil {
				return multierr.Combine(err, perr)
			}
		}
	}
	return err
}

func (r *runner) schemaAction(c *cli.Context) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(schema))
	return err
}
