package optim

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// maxHalvings bounds the backtracking line search.
const maxHalvings = 40

// GaussNewton takes undamped normal-equation steps, halving them until the
// residual sum of squares decreases.
type GaussNewton struct {
	settings Settings
	logger   zerolog.Logger
}

func NewGaussNewton(s Settings) *GaussNewton {
	return &GaussNewton{settings: s.withDefaults(), logger: zerolog.Nop()}
}

func (gn *GaussNewton) Name() string { return "gauss-newton" }

func (gn *GaussNewton) SetLogger(l zerolog.Logger) { gn.logger = l }

func (gn *GaussNewton) Solve(p Problem, x0 []float64) (*Solution, error) {
	if err := p.check(x0); err != nil {
		return nil, err
	}
	s := gn.settings
	n, m := p.NumParams, p.NumResiduals

	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	if err := p.Residuals(x, r); err != nil {
		return nil, err
	}
	sol := &Solution{X: x, RSS: sumSquares(r)}

	jac := mat.NewDense(m, n, nil)
	jtj := mat.NewSymDense(n, nil)
	g := mat.NewVecDense(n, nil)
	step := mat.NewVecDense(n, nil)
	trial := make([]float64, n)
	rTrial := make([]float64, m)

	for iter := 1; iter <= s.MaxIterations; iter++ {
		sol.Iterations = iter
		if sol.RSS == 0 {
			sol.Status = Converged
			return sol, nil
		}

		if err := p.Jacobian(x, jac); err != nil {
			return sol, err
		}
		if err := normal(jac, r, jtj, g); err != nil {
			return sol, err
		}

		var chol mat.Cholesky
		if !chol.Factorize(jtj) {
			return sol, ErrSingular
		}
		if err := chol.SolveVecTo(step, g); err != nil {
			return sol, ErrSingular
		}

		accepted := false
		for h := 0; h < maxHalvings; h++ {
			for i := range trial {
				trial[i] = x[i] + step.AtVec(i)
			}
			if p.feasible(trial) {
				if err := p.Residuals(trial, rTrial); err != nil {
					return sol, err
				}
				if rssTrial := sumSquares(rTrial); rssTrial < sol.RSS {
					reduction := sol.RSS - rssTrial
					prev := sol.RSS
					small := stepSmall(step, x, s.XTol)
					copy(x, trial)
					copy(r, rTrial)
					sol.RSS = rssTrial
					accepted = true

					gn.logger.Debug().
						Int("iter", iter).
						Int("halvings", h).
						Float64("rss", sol.RSS).
						Msg("gauss-newton step accepted")

					if small || reduction <= s.FTol*prev {
						sol.Status = Converged
						return sol, nil
					}
					break
				}
			}
			if stepSmall(step, x, s.XTol) {
				sol.Status = Converged
				return sol, nil
			}
			step.ScaleVec(0.5, step)
		}
		if !accepted {
			return sol, ErrStalled
		}
	}

	sol.Status = Exhausted
	return sol, ErrMaxIterations
}
