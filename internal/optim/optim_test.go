package optim

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// expDecay fits y = a*exp(-b*t) to noiseless samples of a=2, b=0.3.
func expDecay() Problem {
	ts := make([]float64, 20)
	ys := make([]float64, 20)
	for i := range ts {
		ts[i] = float64(i) * 0.5
		ys[i] = 2 * math.Exp(-0.3*ts[i])
	}
	return Problem{
		NumParams:    2,
		NumResiduals: len(ts),
		Residuals: func(p, r []float64) error {
			for i, t := range ts {
				r[i] = ys[i] - p[0]*math.Exp(-p[1]*t)
			}
			return nil
		},
		Jacobian: func(p []float64, jac *mat.Dense) error {
			for i, t := range ts {
				e := math.Exp(-p[1] * t)
				jac.Set(i, 0, e)
				jac.Set(i, 1, -p[0]*t*e)
			}
			return nil
		},
	}
}

func allSolvers(s Settings) []Solver {
	return []Solver{NewLevenbergMarquardt(s), NewGaussNewton(s)}
}

func TestSolvers_Recover(t *testing.T) {
	for _, solver := range allSolvers(DefaultSettings()) {
		t.Run(solver.Name(), func(t *testing.T) {
			sol, err := solver.Solve(expDecay(), []float64{1, 0.1})
			if err != nil {
				t.Fatalf("solve failed: %v", err)
			}
			if sol.Status != Converged {
				t.Errorf("expected converged, got %v", sol.Status)
			}
			if math.Abs(sol.X[0]-2) > 1e-6 || math.Abs(sol.X[1]-0.3) > 1e-6 {
				t.Errorf("expected (2, 0.3), got %v", sol.X)
			}
			if sol.RSS > 1e-12 {
				t.Errorf("expected near-zero rss, got %e", sol.RSS)
			}
		})
	}
}

func TestSolvers_Singular(t *testing.T) {
	p := expDecay()
	inner := p.Jacobian
	p.NumParams = 3
	p.Jacobian = func(x []float64, jac *mat.Dense) error {
		sub := jac.Slice(0, p.NumResiduals, 0, 2).(*mat.Dense)
		if err := inner(x, sub); err != nil {
			return err
		}
		for i := 0; i < p.NumResiduals; i++ {
			jac.Set(i, 2, 0)
		}
		return nil
	}

	for _, solver := range allSolvers(DefaultSettings()) {
		t.Run(solver.Name(), func(t *testing.T) {
			_, err := solver.Solve(p, []float64{1, 0.1, 5})
			if !errors.Is(err, ErrSingular) {
				t.Errorf("expected ErrSingular, got %v", err)
			}
		})
	}
}

func TestSolvers_Budget(t *testing.T) {
	s := DefaultSettings()
	s.MaxIterations = 1

	for _, solver := range allSolvers(s) {
		t.Run(solver.Name(), func(t *testing.T) {
			sol, err := solver.Solve(expDecay(), []float64{1, 0.1})
			if !errors.Is(err, ErrMaxIterations) {
				t.Fatalf("expected ErrMaxIterations, got %v", err)
			}
			if sol == nil || sol.Status != Exhausted || sol.Iterations != 1 {
				t.Errorf("unexpected solution state %+v", sol)
			}
		})
	}
}

func TestSolvers_Feasible(t *testing.T) {
	p := expDecay()
	p.Feasible = func(x []float64) bool { return x[1] > 0 }

	sol, err := NewLevenbergMarquardt(DefaultSettings()).Solve(p, []float64{5, 2})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.X[1] <= 0 {
		t.Errorf("solution left feasible region: %v", sol.X)
	}

	if _, err := NewGaussNewton(DefaultSettings()).Solve(p, []float64{1, -1}); err == nil {
		t.Error("expected an error for an infeasible start")
	}
}

func TestSolvers_BadProblem(t *testing.T) {
	p := expDecay()
	if _, err := NewLevenbergMarquardt(DefaultSettings()).Solve(p, []float64{1}); err == nil {
		t.Error("expected an error for mismatched initial point")
	}
	p.Jacobian = nil
	if _, err := NewGaussNewton(DefaultSettings()).Solve(p, []float64{1, 1}); err == nil {
		t.Error("expected an error for missing jacobian")
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range List() {
		s, err := New(name, Settings{})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("expected solver %q, got %q", name, s.Name())
		}
	}

	if _, err := New("simplex", Settings{}); err == nil {
		t.Error("expected error for unknown solver")
	}
}

func TestSettings_Defaults(t *testing.T) {
	s := Settings{MaxIterations: 7}.withDefaults()
	d := DefaultSettings()
	if s.MaxIterations != 7 {
		t.Errorf("expected explicit max iterations to survive, got %d", s.MaxIterations)
	}
	if s.FTol != d.FTol || s.XTol != d.XTol || s.LambdaFactor != d.LambdaFactor {
		t.Errorf("expected zero fields to take defaults, got %+v", s)
	}
}
