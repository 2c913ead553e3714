// Package fit fits the FRAP recovery model to tidy observations, either with
// one parameter set shared by every group (pooled) or with one set per group
// (grouped), and compares the two.
package fit

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/frapfit/internal/compare"
	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/frap"
	"github.com/san-kum/frapfit/internal/metrics"
	"github.com/san-kum/frapfit/internal/optim"
)

type Mode string

const (
	ModePooled  Mode = "pooled"
	ModeGrouped Mode = "grouped"
)

// PooledKey is the Params key of a pooled fit's single parameter set.
const PooledKey = "pooled"

type Fitter struct {
	solver optim.Solver
	logger zerolog.Logger
}

// New returns a Fitter that minimizes with solver. A nil solver means
// Levenberg-Marquardt with default settings.
func New(solver optim.Solver) *Fitter {
	if solver == nil {
		solver = optim.NewLevenbergMarquardt(optim.DefaultSettings())
	}
	return &Fitter{solver: solver, logger: zerolog.Nop()}
}

// SetLogger sets the logger for fit events and forwards it to the solver.
func (f *Fitter) SetLogger(l zerolog.Logger) {
	f.logger = l
	if s, ok := f.solver.(interface{ SetLogger(zerolog.Logger) }); ok {
		s.SetLogger(l)
	}
}

// Pooled fits one parameter set to every observation, ignoring group labels.
func (f *Fitter) Pooled(obs []dataset.Observation, start frap.ParameterSet) (*Result, error) {
	groupOf := make([]int, len(obs))
	return f.fit(ModePooled, obs, groupOf, []string{PooledKey}, start)
}

// Grouped fits one parameter set per label in a single joint optimization.
// Every group starts from start.
func (f *Fitter) Grouped(obs []dataset.Observation, labels []string, start frap.ParameterSet) (*Result, error) {
	if len(labels) == 0 {
		return nil, frap.NewShapeError("grouped fit needs at least one group")
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, frap.NewShapeError("duplicate group label %q", l)
		}
		index[l] = i
	}

	groupOf := make([]int, len(obs))
	for i, o := range obs {
		g, ok := index[o.Group]
		if !ok {
			return nil, &frap.DataShapeError{Row: i, Column: -1, Reason: fmt.Sprintf("unknown group %q", o.Group)}
		}
		groupOf[i] = g
	}
	return f.fit(ModeGrouped, obs, groupOf, labels, start)
}

func (f *Fitter) fit(mode Mode, obs []dataset.Observation, groupOf []int, labels []string, start frap.ParameterSet) (*Result, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	k := len(labels)
	numParams := frap.NumParams * k
	if len(obs) < numParams {
		return nil, &frap.ConvergenceError{
			Mode:    string(mode),
			Wrapped: fmt.Errorf("%w: %d observations for %d parameters", frap.ErrInsufficientData, len(obs), numParams),
		}
	}

	x0 := make([]float64, 0, numParams)
	for g := 0; g < k; g++ {
		x0 = append(x0, start.Vector()...)
	}

	problem := optim.Problem{
		NumParams:    numParams,
		NumResiduals: len(obs),
		Residuals: func(p, r []float64) error {
			for i, o := range obs {
				y, err := groupParams(p, groupOf[i]).At(o.Time)
				if err != nil {
					return err
				}
				r[i] = o.Value - y
			}
			return nil
		},
		Jacobian: func(p []float64, jac *mat.Dense) error {
			jac.Zero()
			for i, o := range obs {
				g := groupOf[i]
				grad, err := groupParams(p, g).Gradient(o.Time)
				if err != nil {
					return err
				}
				for j, d := range grad {
					jac.Set(i, frap.NumParams*g+j, d)
				}
			}
			return nil
		},
		Feasible: func(p []float64) bool {
			for g := 0; g < k; g++ {
				if groupParams(p, g).Validate() != nil {
					return false
				}
			}
			return true
		},
	}

	f.logger.Debug().
		Str("mode", string(mode)).
		Int("groups", k).
		Int("observations", len(obs)).
		Str("start", start.String()).
		Msg("starting fit")

	sol, err := f.solver.Solve(problem, x0)
	if err != nil {
		return nil, convergenceError(mode, sol, err)
	}

	res := &Result{
		Mode:       mode,
		Labels:     append([]string(nil), labels...),
		Params:     make(map[string]frap.ParameterSet, k),
		RSS:        sol.RSS,
		NumObs:     len(obs),
		NumParams:  numParams,
		Iterations: sol.Iterations,
		Converged:  sol.Status == optim.Converged,
		Solver:     f.solver.Name(),
	}
	for g, l := range labels {
		res.Params[l] = groupParams(sol.X, g)
	}

	observed := make([]float64, len(obs))
	predicted := make([]float64, len(obs))
	for i, o := range obs {
		observed[i] = o.Value
		predicted[i], _ = res.Params[labels[groupOf[i]]].At(o.Time)
	}
	res.Metrics = metrics.Collect(metrics.Default(numParams), observed, predicted)

	f.logger.Info().
		Str("mode", string(mode)).
		Float64("rss", res.RSS).
		Int("iterations", res.Iterations).
		Msg("fit complete")

	return res, nil
}

func groupParams(p []float64, g int) frap.ParameterSet {
	return frap.FromVector(p[frap.NumParams*g : frap.NumParams*(g+1)])
}

func convergenceError(mode Mode, sol *optim.Solution, err error) error {
	var domain *frap.DomainError
	if errors.As(err, &domain) {
		return err
	}

	ce := &frap.ConvergenceError{Mode: string(mode)}
	if sol != nil {
		ce.Iterations = sol.Iterations
		ce.RSS = sol.RSS
	}
	if errors.Is(err, optim.ErrSingular) {
		ce.Wrapped = fmt.Errorf("%w: %v", frap.ErrSingularJacobian, err)
	} else {
		ce.Wrapped = fmt.Errorf("%w: %v", frap.ErrNoConvergence, err)
	}
	return ce
}

// Analysis is the full pooled-versus-grouped comparison of one table.
type Analysis struct {
	Initial frap.ParameterSet
	Pooled  *Result
	Grouped *Result
	// FTest is nil when the table has a single group, since both fits then
	// have the same parameters.
	FTest *compare.FTestResult
}

// FitAll estimates starting values, fits pooled then grouped, and compares
// the two fits.
func (f *Fitter) FitAll(t *dataset.Table) (*Analysis, error) {
	start, err := InitialGuess(t)
	if err != nil {
		return nil, err
	}
	f.logger.Info().Str("initial", start.String()).Msg("estimated starting values")

	obs := t.Tidy()
	pooled, err := f.Pooled(obs, start)
	if err != nil {
		return nil, err
	}
	grouped, err := f.Grouped(obs, t.Labels, start)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Initial: start, Pooled: pooled, Grouped: grouped}
	if t.NumGroups() > 1 {
		a.FTest, err = compare.Nested(pooled, grouped)
		if err != nil {
			return nil, err
		}
		f.logger.Info().
			Float64("f", a.FTest.F).
			Float64("p", a.FTest.P).
			Msg("compared pooled and grouped fits")
	}
	return a, nil
}
