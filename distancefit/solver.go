package distancefit

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/depthmesh/logging"
)

// Method selects the minimization algorithm.
type Method int

const (
	// MethodLevenbergMarquardt is a damped Gauss-Newton least squares solver.
	MethodLevenbergMarquardt Method = iota
	// MethodLBFGS minimizes the summed squared residuals with gonum's LBFGS.
	MethodLBFGS
	// MethodBFGS minimizes the summed squared residuals with gonum's BFGS.
	MethodBFGS
)

func (m Method) String() string {
	switch m {
	case MethodLevenbergMarquardt:
		return "lm"
	case MethodLBFGS:
		return "lbfgs"
	case MethodBFGS:
		return "bfgs"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// MethodFromString parses "lm", "lbfgs" or "bfgs".
func MethodFromString(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "", "lm", "levenberg-marquardt":
		return MethodLevenbergMarquardt, nil
	case "lbfgs":
		return MethodLBFGS, nil
	case "bfgs":
		return MethodBFGS, nil
	default:
		return 0, errors.Errorf("unknown solver method %q", s)
	}
}

// Default tolerances, matching the usual MINPACK settings.
const (
	DefaultFTol = 1.49012e-8
	DefaultXTol = 1.49012e-8
	DefaultGTol = 0.0
)

// Solver runs one synchronous minimization. The zero value is usable and runs
// Levenberg-Marquardt with default tolerances.
type Solver struct {
	Method Method
	// MaxIterations defaults to 100*(n+1) where n is the number of unknowns.
	MaxIterations int
	FTol          float64
	XTol          float64
	GTol          float64
	// NumericJacobian replaces the closed-form Jacobian with finite differences.
	NumericJacobian bool
	Logger          logging.Logger
}

// Result is the outcome of Solve. Not converging is reported here, not as an error.
type Result struct {
	Solution      []float64
	Converged     bool
	FinalResidual float64
	Iterations    int
	Evaluations   int
	Status        string
}

func (s *Solver) withDefaults(unknowns int) Solver {
	out := *s
	if out.MaxIterations <= 0 {
		out.MaxIterations = 100 * (unknowns + 1)
	}
	if out.FTol <= 0 {
		out.FTol = DefaultFTol
	}
	if out.XTol <= 0 {
		out.XTol = DefaultXTol
	}
	if out.GTol < 0 {
		out.GTol = DefaultGTol
	}
	if out.Logger == nil {
		out.Logger = logging.NewBlankLogger("distancefit")
	}
	return out
}

// Solve minimizes the problem's squared residuals starting at initialGuess.
// Errors are returned for malformed input and for ctx ending, in which case the
// result still carries the best solution found so far.
func (s *Solver) Solve(ctx context.Context, problem *Problem, initialGuess []float64) (*Result, error) {
	if problem == nil || problem.Design == nil {
		return nil, errors.New("cannot solve a nil problem")
	}
	if err := problem.checkGuess(initialGuess); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return s.unsolved(problem, initialGuess), err
	}
	_, n := problem.Size()
	cfg := s.withDefaults(n)
	cfg.Logger.Debugw("starting distance fit",
		"method", cfg.Method.String(),
		"unknowns", n,
		"residuals", len(problem.Targets),
		"max_iterations", cfg.MaxIterations)

	var (
		res *Result
		err error
	)
	switch cfg.Method {
	case MethodLevenbergMarquardt:
		res, err = cfg.levenbergMarquardt(ctx, problem, initialGuess)
	case MethodLBFGS, MethodBFGS:
		res, err = cfg.minimize(ctx, problem, initialGuess)
	default:
		return nil, errors.Errorf("unsupported solver method %v", cfg.Method)
	}
	if res != nil {
		cfg.Logger.Debugw("distance fit finished",
			"status", res.Status,
			"converged", res.Converged,
			"residual", res.FinalResidual,
			"iterations", res.Iterations)
	}
	return res, err
}

func (s *Solver) unsolved(problem *Problem, u []float64) *Result {
	return &Result{
		Solution:      append([]float64(nil), u...),
		FinalResidual: problem.Cost(u),
		Status:        "NotStarted",
	}
}
