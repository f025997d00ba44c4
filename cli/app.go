// Package cli contains the depthmesh command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	flagConfig  = "config"
	flagDebug   = "debug"
	flagLogFile = "log-file"
	flagOutput  = "output"

	// Input flags.
	flagSensor      = "sensor"
	flagSensorFocal = "sensor-focal"
	flagQuarterTurn = "quarter-turn"

	// Pipeline flags.
	flagStride  = "stride"
	flagTimeout = "timeout"
	flagPlots   = "plots"
	flagBins    = "histogram-bins"

	defaultSensorFocal = 640.
)

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  flagSensor,
			Usage: "read a raw sensor capture (kinect.mat and img.png) instead of disparity.txt and params.txt",
		},
		&cli.Float64Flag{
			Name:  flagSensorFocal,
			Value: defaultSensorFocal,
			Usage: "focal length in pixels of the raw sensor",
		},
		&cli.BoolFlag{
			Name:  flagQuarterTurn,
			Usage: "the raw sensor's companion image is rotated by 90 degrees",
		},
	}
}

func meshFlags() []cli.Flag {
	return append(inputFlags(),
		&cli.IntFlag{
			Name:  flagStride,
			Usage: "keep every `N`th row and column (overrides the config)",
		},
		&cli.BoolFlag{
			Name:  flagPlots,
			Usage: "also write png plots (overrides the config)",
		},
	)
}

// NewApp returns the depthmesh application writing results to out and errors to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	r := &runner{}
	return &cli.App{
		Name:            "depthmesh",
		Usage:           "turn disparity grids into point clouds and flattened mesh layouts",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write JSON logs to `FILE` (overrides the config)",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "write results to `DIR` (overrides the config)",
			},
		},
		Before: r.setup,
		After:  r.close,
		Commands: []*cli.Command{
			{
				Name:      "project",
				Usage:     "project the full disparity grid to a point cloud",
				ArgsUsage: "<data_dir>",
				Flags:     append(inputFlags(), &cli.BoolFlag{Name: flagPlots, Usage: "also write a disparity heat map"}),
				Action:    r.projectAction,
			},
			{
				Name:      "mesh",
				Usage:     "decimate the grid and write the mesh points and edges",
				ArgsUsage: "<data_dir>",
				Flags:     meshFlags(),
				Action:    r.meshAction,
			},
			{
				Name:      "fit",
				Usage:     "fit a flat layout whose edge lengths match the measured 3D lengths",
				ArgsUsage: "<data_dir>",
				Flags: append(meshFlags(),
					&cli.DurationFlag{
						Name:  flagTimeout,
						Usage: "give up on the fit after this long",
					},
					&cli.IntFlag{
						Name:  flagBins,
						Usage: "print a histogram of the edge errors with `N` bins",
					},
				),
				Action: r.fitAction,
			},
			{
				Name:   "config-schema",
				Usage:  "print the JSON schema of the config file",
				Action: r.schemaAction,
			},
		},
	}
}
