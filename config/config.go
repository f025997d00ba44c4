// Package config defines the JSON configuration of a depthmesh pipeline run.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/depthmesh/distancefit"
	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage/transform"
)

// Defaults applied by Read when a field is left out.
const (
	DefaultStride    = 60
	DefaultDims      = 2
	DefaultPCDFormat = "ascii"
	DefaultOutputDir = "."
)

// DepthModelConfig names a registered depth model and its attributes.
type DepthModelConfig struct {
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// SolverConfig mirrors distancefit.Solver plus the layout dimension.
type SolverConfig struct {
	Method          string  `json:"method,omitempty"`
	MaxIterations   int     `json:"max_iterations,omitempty"`
	FTol            float64 `json:"ftol,omitempty"`
	XTol            float64 `json:"xtol,omitempty"`
	GTol            float64 `json:"gtol,omitempty"`
	Dims            int     `json:"dims,omitempty"`
	NumericJacobian bool    `json:"numeric_jacobian,omitempty"`
}

// OutputConfig controls what a run writes and where.
type OutputConfig struct {
	Dir       string `json:"dir,omitempty"`
	PCDFormat string `json:"pcd_format,omitempty"`
	Plots     bool   `json:"plots,omitempty"`
	// LAS also writes the finite projected points as a LAS file.
	LAS bool `json:"las,omitempty"`
}

// Config is the top level pipeline configuration.
type Config struct {
	Stride int `json:"stride,omitempty"`
	// Intrinsics overrides the focal length read from the data directory.
	Intrinsics *transform.PinholeIntrinsics `json:"intrinsics,omitempty"`
	DepthModel DepthModelConfig             `json:"depth_model"`
	Solver     SolverConfig                 `json:"solver"`
	Output     OutputConfig                 `json:"output"`
	LogFile    string                       `json:"log_file,omitempty"`
	LogLevel   string                       `json:"log_level,omitempty"`
}

// Schema returns the JSON schema of a config document.
func Schema() ([]byte, error) {
	return json.MarshalIndent(jsonschema.Reflect(&Config{}), "", "  ")
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Stride == 0 {
		cfg.Stride = DefaultStride
	}
	if cfg.DepthModel.Type == "" {
		cfg.DepthModel.Type = transform.KinectDepthModelName
	}
	if cfg.Solver.Method == "" {
		cfg.Solver.Method = distancefit.MethodLevenbergMarquardt.String()
	}
	if cfg.Solver.Dims == 0 {
		cfg.Solver.Dims = DefaultDims
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.PCDFormat == "" {
		cfg.Output.PCDFormat = DefaultPCDFormat
	}
}

// Read loads a JSON config file, fills in defaults and validates it.
func Read(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	return FromJSON(data)
}

// FromJSON parses a config document, fills in defaults and validates it.
func FromJSON(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	cfg.applyDefaults()
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem in the config, each prefixed by its field path.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.Stride < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("stride must be at least 1, got %d", cfg.Stride)))
	}
	if cfg.Intrinsics != nil {
		if err := cfg.Intrinsics.CheckValid(); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.intrinsics", path), err))
		}
	}
	errs = multierr.Append(errs, cfg.DepthModel.Validate(fmt.Sprintf("%s.depth_model", path)))
	errs = multierr.Append(errs, cfg.Solver.Validate(fmt.Sprintf("%s.solver", path)))
	errs = multierr.Append(errs, cfg.Output.Validate(fmt.Sprintf("%s.output", path)))
	if cfg.LogLevel != "" {
		if _, err := logging.LevelFromString(cfg.LogLevel); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path, err))
		}
	}
	return errs
}

// Validate checks that the model is registered and its attributes decode.
func (dmc *DepthModelConfig) Validate(path string) error {
	if dmc.Type == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	}
	if _, err := dmc.Build(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// Build constructs the configured depth model.
func (dmc *DepthModelConfig) Build() (transform.DepthModel, error) {
	return transform.NewDepthModel(dmc.Type, dmc.Attributes)
}

// Validate checks method, dimension and tolerances.
func (sc *SolverConfig) Validate(path string) error {
	var errs error
	if _, err := distancefit.MethodFromString(sc.Method); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, err))
	}
	if sc.Dims != 2 && sc.Dims != 3 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("dims must be 2 or 3, got %d", sc.Dims)))
	}
	if sc.MaxIterations < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("max_iterations cannot be negative")))
	}
	if sc.FTol < 0 || sc.XTol < 0 || sc.GTol < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("tolerances cannot be negative")))
	}
	return errs
}

// Solver builds a distancefit.Solver from the config.
func (sc *SolverConfig) Solver(logger logging.Logger) (*distancefit.Solver, error) {
	method, err := distancefit.MethodFromString(sc.Method)
	if err != nil {
		return nil, err
	}
	return &distancefit.Solver{
		Method:          method,
		MaxIterations:   sc.MaxIterations,
		FTol:            sc.FTol,
		XTol:            sc.XTol,
		GTol:            sc.GTol,
		NumericJacobian: sc.NumericJacobian,
		Logger:          logger,
	}, nil
}

// Validate checks the output format.
func (oc *OutputConfig) Validate(path string) error {
	if _, err := pointcloud.PCDTypeFromString(oc.PCDFormat); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}
