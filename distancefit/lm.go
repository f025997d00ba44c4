package distancefit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Levenberg-Marquardt status strings.
const (
	StatusGradientThreshold   = "GradientThreshold"
	StatusZeroResidual        = "ZeroResidual"
	StatusFunctionConvergence = "FunctionConvergence"
	StatusStepConvergence     = "StepConvergence"
	StatusIterationLimit      = "IterationLimit"
	StatusNonFinite           = "NonFiniteResidual"
	StatusCanceled            = "Canceled"
)

// initial damping relative to the largest diagonal entry of JᵀJ
const lmTau = 1e-3

// lmState holds the quantities that change only when a step is accepted.
type lmState struct {
	x    []float64
	r    []float64
	cost float64
	jac  *mat.Dense
	jtj  *mat.SymDense
	grad *mat.VecDense
}

func (s *Solver) linearize(problem *Problem, st *lmState) {
	if s.NumericJacobian {
		problem.NumericJacobian(st.jac, st.x)
	} else {
		problem.Jacobian(st.jac, st.x)
	}
	st.jtj.SymOuterK(1, st.jac.T())
	st.grad.MulVec(st.jac.T(), mat.NewVecDense(len(st.r), st.r))
}

// levenbergMarquardt minimizes sum(r²) with Nielsen's damping update. The step
// h solves (JᵀJ + mu*I) h = -Jᵀr.
func (s *Solver) levenbergMarquardt(ctx context.Context, problem *Problem, u0 []float64) (*Result, error) {
	m, n := problem.Size()
	st := &lmState{
		x:    append([]float64(nil), u0...),
		jac:  mat.NewDense(m, n, nil),
		jtj:  mat.NewSymDense(n, nil),
		grad: mat.NewVecDense(n, nil),
	}
	st.r = problem.Residuals(nil, st.x)
	st.cost = floats.Dot(st.r, st.r)
	res := &Result{Evaluations: 1}
	finish := func(status string, converged bool) *Result {
		res.Solution = st.x
		res.FinalResidual = st.cost
		res.Status = status
		res.Converged = converged
		return res
	}
	if !isFinite(st.cost) {
		return finish(StatusNonFinite, false), nil
	}
	if st.cost == 0 {
		return finish(StatusZeroResidual, true), nil
	}
	s.linearize(problem, st)

	var maxDiag float64
	for i := 0; i < n; i++ {
		maxDiag = math.Max(maxDiag, st.jtj.At(i, i))
	}
	mu := lmTau * maxDiag
	if mu == 0 {
		mu = lmTau
	}
	nu := 2.0

	damped := mat.NewSymDense(n, nil)
	negGrad := mat.NewVecDense(n, nil)
	h := mat.NewVecDense(n, nil)
	xNew := make([]float64, n)
	rNew := make([]float64, m)
	var chol mat.Cholesky

	for res.Iterations < s.MaxIterations {
		if err := ctx.Err(); err != nil {
			return finish(StatusCanceled, false), err
		}
		if mat.Norm(st.grad, math.Inf(1)) <= s.GTol {
			return finish(StatusGradientThreshold, true), nil
		}
		res.Iterations++

		damped.CopySym(st.jtj)
		for i := 0; i < n; i++ {
			damped.SetSym(i, i, damped.At(i, i)+mu)
		}
		if ok := chol.Factorize(damped); !ok {
			mu *= nu
			nu *= 2
			continue
		}
		negGrad.ScaleVec(-1, st.grad)
		if err := chol.SolveVecTo(h, negGrad); err != nil {
			mu *= nu
			nu *= 2
			continue
		}

		step := h.RawVector().Data
		if floats.Norm(step, 2) <= s.XTol*(floats.Norm(st.x, 2)+s.XTol) {
			return finish(StatusStepConvergence, true), nil
		}

		floats.AddTo(xNew, st.x, step)
		problem.Residuals(rNew, xNew)
		res.Evaluations++
		costNew := floats.Dot(rNew, rNew)

		// predicted reduction of the linear model: hᵀ(mu*h - g)
		predicted := mu*floats.Dot(step, step) - mat.Dot(h, st.grad)
		actual := st.cost - costNew
		rho := actual / predicted

		if isFinite(costNew) && predicted > 0 && rho > 0 {
			relActual := actual / st.cost
			relPredicted := predicted / st.cost
			copy(st.x, xNew)
			copy(st.r, rNew)
			st.cost = costNew
			s.Logger.Debugw("lm step accepted", "iteration", res.Iterations, "cost", costNew, "mu", mu)
			if costNew == 0 {
				return finish(StatusZeroResidual, true), nil
			}
			if relActual <= s.FTol && relPredicted <= s.FTol {
				return finish(StatusFunctionConvergence, true), nil
			}
			s.linearize(problem, st)
			mu *= math.Max(1./3, 1-math.Pow(2*rho-1, 3))
			nu = 2
		} else {
			mu *= nu
			nu *= 2
		}
		if math.IsInf(mu, 1) {
			break
		}
	}
	return finish(StatusIterationLimit, false), nil
}
