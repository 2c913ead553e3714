package optim

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// LevenbergMarquardt damps the Gauss-Newton step with Marquardt's diagonal
// scaling: (J^T J + lambda*diag(J^T J)) dx = J^T r.
type LevenbergMarquardt struct {
	settings Settings
	logger   zerolog.Logger
}

func NewLevenbergMarquardt(s Settings) *LevenbergMarquardt {
	return &LevenbergMarquardt{settings: s.withDefaults(), logger: zerolog.Nop()}
}

func (lm *LevenbergMarquardt) Name() string { return "lm" }

func (lm *LevenbergMarquardt) SetLogger(l zerolog.Logger) { lm.logger = l }

func (lm *LevenbergMarquardt) Solve(p Problem, x0 []float64) (*Solution, error) {
	if err := p.check(x0); err != nil {
		return nil, err
	}
	s := lm.settings
	n, m := p.NumParams, p.NumResiduals

	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	if err := p.Residuals(x, r); err != nil {
		return nil, err
	}
	sol := &Solution{X: x, RSS: sumSquares(r)}

	jac := mat.NewDense(m, n, nil)
	jtj := mat.NewSymDense(n, nil)
	damped := mat.NewSymDense(n, nil)
	g := mat.NewVecDense(n, nil)
	step := mat.NewVecDense(n, nil)
	trial := make([]float64, n)
	rTrial := make([]float64, m)
	lambda := s.Lambda0

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

		for {
			damped.CopySym(jtj)
			for i := 0; i < n; i++ {
				damped.SetSym(i, i, jtj.At(i, i)*(1+lambda))
			}

			var chol mat.Cholesky
			if !chol.Factorize(damped) || chol.SolveVecTo(step, g) != nil {
				lambda *= s.LambdaFactor
				if lambda > s.LambdaMax {
					return sol, ErrSingular
				}
				continue
			}

			for i := range trial {
				trial[i] = x[i] + step.AtVec(i)
			}
			small := stepSmall(step, x, s.XTol)

			if p.feasible(trial) {
				if err := p.Residuals(trial, rTrial); err != nil {
					return sol, err
				}
				rssTrial := sumSquares(rTrial)
				if rssTrial < sol.RSS {
					reduction := sol.RSS - rssTrial
					prev := sol.RSS
					copy(x, trial)
					copy(r, rTrial)
					sol.RSS = rssTrial
					lambda = math.Max(lambda/s.LambdaFactor, 1e-12)

					lm.logger.Debug().
						Int("iter", iter).
						Float64("rss", sol.RSS).
						Float64("lambda", lambda).
						Msg("lm step accepted")

					if small || reduction <= s.FTol*prev {
						sol.Status = Converged
						return sol, nil
					}
					break
				}
			}

			if small {
				sol.Status = Converged
				return sol, nil
			}
			lambda *= s.LambdaFactor
			if lambda > s.LambdaMax {
				return sol, ErrStalled
			}
		}
	}

	sol.Status = Exhausted
	return sol, ErrMaxIterations
}
