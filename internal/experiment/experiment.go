// Package experiment drives one analysis end to end: obtain a table, fit it
// and build the chart.
package experiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/frapfit/internal/config"
	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/export"
	"github.com/san-kum/frapfit/internal/fit"
)

// CurvePoints is the number of samples on each plotted fitted curve.
const CurvePoints = 200

// Outcome is everything a run produces.
type Outcome struct {
	Source   string
	Table    *dataset.Table
	Analysis *fit.Analysis
	Plot     *export.Plot
}

type Experiment struct {
	cfg    *config.Config
	input  string
	logger zerolog.Logger
}

// New returns an experiment over cfg. An empty input synthesizes a table from
// cfg.Generate; otherwise input names a CSV file to load.
func New(cfg *config.Config, input string) *Experiment {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Experiment{cfg: cfg, input: input, logger: zerolog.Nop()}
}

func (e *Experiment) SetLogger(l zerolog.Logger) {
	e.logger = l
}

// Run executes the pipeline. ctx is checked between stages.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, source, err := e.table()
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("source", source).
		Int("nobs", table.NumObs()).
		Int("groups", table.NumGroups()).
		Msg("observations ready")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	solver, err := e.cfg.Solver()
	if err != nil {
		return nil, err
	}
	fitter := fit.New(solver)
	fitter.SetLogger(e.logger)

	a, err := fitter.FitAll(table)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	curves, err := Curves(table, a.Grouped, CurvePoints)
	if err != nil {
		return nil, err
	}
	plot := export.NewPlot(table, curves, export.DefaultOptions())
	e.logger.Info().Int("curves", len(curves)).Msg("plot built")

	return &Outcome{Source: source, Table: table, Analysis: a, Plot: plot}, nil
}

func (e *Experiment) table() (*dataset.Table, string, error) {
	if e.input != "" {
		t, err := dataset.LoadCSV(e.input)
		if err != nil {
			return nil, "", err
		}
		return t, e.input, nil
	}
	t, err := dataset.Synthesize(e.cfg.SynthConfig())
	if err != nil {
		return nil, "", err
	}
	return t, "synthetic", nil
}

// Curves samples r on n evenly spaced times spanning the table, one curve per
// fitted label.
func Curves(table *dataset.Table, r *fit.Result, n int) ([]export.Curve, error) {
	if n < 2 {
		return nil, fmt.Errorf("curve needs at least 2 points, got %d", n)
	}
	if table.NumObs() == 0 {
		return nil, fmt.Errorf("empty table")
	}
	ts := floats.Span(make([]float64, n), table.Times[0], table.Times[table.NumObs()-1])

	curves := make([]export.Curve, 0, len(r.Labels))
	for _, label := range r.Labels {
		vs, err := r.Predict(label, ts)
		if err != nil {
			return nil, err
		}
		curves = append(curves, export.Curve{Label: label, Times: ts, Values: vs})
	}
	return curves, nil
}
