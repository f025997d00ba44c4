package distancefit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/depthmesh/logging"
)

// progressRecorder stops gonum's minimizer when ctx ends and logs major iterations.
type progressRecorder struct {
	ctx    context.Context
	logger logging.Logger
}

func (rec *progressRecorder) Init() error {
	return rec.ctx.Err()
}

func (rec *progressRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if err := rec.ctx.Err(); err != nil {
		return err
	}
	if op == optimize.MajorIteration {
		rec.logger.Debugw("minimizer iteration", "iteration", stats.MajorIterations, "cost", loc.F)
	}
	return nil
}

// minimize hands sum(r²) with gradient 2Jᵀr to gonum's quasi-Newton methods.
func (s *Solver) minimize(ctx context.Context, problem *Problem, u0 []float64) (*Result, error) {
	m, n := problem.Size()
	jac := mat.NewDense(m, n, nil)
	r := make([]float64, m)

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			problem.Residuals(r, x)
			var sum float64
			for _, v := range r {
				sum += v * v
			}
			return sum
		},
		Grad: func(grad, x []float64) {
			problem.Residuals(r, x)
			if s.NumericJacobian {
				problem.NumericJacobian(jac, x)
			} else {
				problem.Jacobian(jac, x)
			}
			g := mat.NewVecDense(n, grad)
			g.MulVec(jac.T(), mat.NewVecDense(m, r))
			g.ScaleVec(2, g)
		},
	}

	gradThreshold := s.GTol
	if gradThreshold == 0 {
		gradThreshold = 1e-12
	}
	settings := &optimize.Settings{
		GradientThreshold: gradThreshold,
		MajorIterations:   s.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-30,
			Relative:   s.FTol,
			Iterations: 20,
		},
		Recorder: &progressRecorder{ctx: ctx, logger: s.Logger},
	}

	var method optimize.Method = &optimize.LBFGS{}
	if s.Method == MethodBFGS {
		method = &optimize.BFGS{}
	}

	out, err := optimize.Minimize(p, u0, settings, method)
	if ctxErr := ctx.Err(); ctxErr != nil {
		if out == nil {
			return s.unsolved(problem, u0), ctxErr
		}
		res := resultFromOptimize(problem, out)
		res.Status = StatusCanceled
		res.Converged = false
		return res, ctxErr
	}
	if out == nil {
		// gonum refused to start; report the starting point as unconverged
		res := s.unsolved(problem, u0)
		if err != nil {
			res.Status = err.Error()
		}
		return res, nil
	}
	res := resultFromOptimize(problem, out)
	if err != nil {
		s.Logger.Debugw("minimizer stopped early", "error", err)
		res.Converged = false
	}
	return res, nil
}

func resultFromOptimize(problem *Problem, out *optimize.Result) *Result {
	solution := append([]float64(nil), out.X...)
	cost := out.F
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		cost = problem.Cost(solution)
	}
	converged := false
	switch out.Status {
	case optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence, optimize.Success:
		converged = true
	default:
	}
	return &Result{
		Solution:      solution,
		Converged:     converged,
		FinalResidual: cost,
		Iterations:    out.MajorIterations,
		Evaluations:   out.FuncEvaluations,
		Status:        out.Status.String(),
	}
}
