// Package optim solves small nonlinear least-squares problems.
//
// A [Problem] supplies residuals r = y - f(p) and the model Jacobian df/dp.
// Solvers minimize sum(r^2) starting from an initial parameter vector.
package optim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMaxIterations indicates the iteration budget ran out before convergence.
	ErrMaxIterations = errors.New("optim: iteration budget exhausted")

	// ErrSingular indicates the normal equations could not be solved.
	ErrSingular = errors.New("optim: singular normal matrix")

	// ErrStalled indicates no acceptable step could be found.
	ErrStalled = errors.New("optim: no descent step found")
)

type Problem struct {
	NumParams    int
	NumResiduals int

	// Residuals fills r with observed minus model at p.
	Residuals func(p, r []float64) error

	// Jacobian fills jac (NumResiduals x NumParams) with d(model)/dp at p.
	Jacobian func(p []float64, jac *mat.Dense) error

	// Feasible rejects trial points outside the model domain. Nil accepts all.
	Feasible func(p []float64) bool
}

func (p Problem) check(x0 []float64) error {
	switch {
	case p.NumParams <= 0:
		return fmt.Errorf("optim: problem has %d parameters", p.NumParams)
	case len(x0) != p.NumParams:
		return fmt.Errorf("optim: initial point has %d values, want %d", len(x0), p.NumParams)
	case p.Residuals == nil || p.Jacobian == nil:
		return errors.New("optim: problem needs residual and jacobian functions")
	case p.Feasible != nil && !p.Feasible(x0):
		return errors.New("optim: initial point is infeasible")
	}
	return nil
}

func (p Problem) feasible(x []float64) bool {
	return p.Feasible == nil || p.Feasible(x)
}

type Status int

const (
	NotTerminated Status = iota
	Converged
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	}
	return "running"
}

// Solution is the solver's final state. It is returned alongside errors too,
// so callers can report how far the solver got.
type Solution struct {
	X          []float64
	RSS        float64
	Iterations int
	Status     Status
}

type Solver interface {
	Name() string
	Solve(p Problem, x0 []float64) (*Solution, error)
}

// Settings are the shared stopping rules.
type Settings struct {
	MaxIterations int     `yaml:"max_iterations"`
	FTol          float64 `yaml:"ftol"`
	XTol          float64 `yaml:"xtol"`
	Lambda0       float64 `yaml:"lambda0"`
	LambdaFactor  float64 `yaml:"lambda_factor"`
	LambdaMax     float64 `yaml:"lambda_max"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 200,
		FTol:          1e-12,
		XTol:          1e-10,
		Lambda0:       1e-3,
		LambdaFactor:  10,
		LambdaMax:     1e16,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.FTol <= 0 {
		s.FTol = d.FTol
	}
	if s.XTol <= 0 {
		s.XTol = d.XTol
	}
	if s.Lambda0 <= 0 {
		s.Lambda0 = d.Lambda0
	}
	if s.LambdaFactor <= 1 {
		s.LambdaFactor = d.LambdaFactor
	}
	if s.LambdaMax <= 0 {
		s.LambdaMax = d.LambdaMax
	}
	return s
}

// normal forms J^T J and J^T r.
func normal(jac *mat.Dense, r []float64, jtj *mat.SymDense, g *mat.VecDense) error {
	jtj.SymOuterK(1, jac.T())
	g.MulVec(jac.T(), mat.NewVecDense(len(r), r))
	n, _ := jtj.Dims()
	for i := 0; i < n; i++ {
		if jtj.At(i, i) == 0 {
			return fmt.Errorf("%w: parameter %d has no influence on the residuals", ErrSingular, i)
		}
	}
	return nil
}

func stepSmall(step *mat.VecDense, x []float64, xtol float64) bool {
	return mat.Norm(step, 2) <= xtol*(mat.Norm(mat.NewVecDense(len(x), x), 2)+xtol)
}

func sumSquares(r []float64) float64 {
	s := 0.0
	for _, v := range r {
		s += v * v
	}
	return s
}
