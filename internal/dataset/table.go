// Package dataset holds FRAP observation tables: the wide form read from CSV
// (one times column, one column per group) and the tidy long form the fitter
// consumes.
package dataset

import (
	"fmt"
	"math"

	"github.com/san-kum/frapfit/internal/frap"
)

// MaxGroups is the size of the group label alphabet.
const MaxGroups = 26

// Table is an observation table. Values[g][i] is group g's response at Times[i].
type Table struct {
	Times  []float64
	Labels []string
	Values [][]float64
}

// Observation is one row of the tidy relation.
type Observation struct {
	Time  float64
	Group string
	Value float64
}

// Label returns the letter label for group index i.
func Label(i int) (string, error) {
	if i < 0 || i >= MaxGroups {
		return "", frap.NewShapeError("group index %d outside label alphabet A-Z", i)
	}
	return string(rune('A' + i)), nil
}

// NewTable builds a table with letter labels A, B, ... for each column.
func NewTable(times []float64, columns ...[]float64) (*Table, error) {
	labels := make([]string, len(columns))
	for i := range columns {
		l, err := Label(i)
		if err != nil {
			return nil, err
		}
		labels[i] = l
	}
	t := &Table{Times: times, Labels: labels, Values: columns}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) NumObs() int    { return len(t.Times) }
func (t *Table) NumGroups() int { return len(t.Values) }

// Validate checks the alignment and label invariants.
func (t *Table) Validate() error {
	if len(t.Times) == 0 {
		return frap.NewShapeError("no time points")
	}
	if len(t.Values) == 0 {
		return frap.NewShapeError("no group columns")
	}
	if len(t.Values) > MaxGroups {
		return frap.NewShapeError("%d groups exceeds label alphabet of %d", len(t.Values), MaxGroups)
	}
	if len(t.Labels) != len(t.Values) {
		return frap.NewShapeError("%d labels for %d group columns", len(t.Labels), len(t.Values))
	}

	for i, ts := range t.Times {
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return &frap.DataShapeError{Row: i, Column: 0, Reason: "non-finite time"}
		}
		if i > 0 && ts <= t.Times[i-1] {
			return &frap.DataShapeError{Row: i, Column: 0, Reason: fmt.Sprintf("times not strictly increasing (%g after %g)", ts, t.Times[i-1])}
		}
	}

	seen := make(map[string]bool, len(t.Labels))
	for g, col := range t.Values {
		label := t.Labels[g]
		if label == "" {
			return &frap.DataShapeError{Row: -1, Column: g + 1, Reason: "empty group label"}
		}
		if seen[label] {
			return &frap.DataShapeError{Row: -1, Column: g + 1, Reason: fmt.Sprintf("duplicate group label %q", label)}
		}
		seen[label] = true

		if len(col) != len(t.Times) {
			return &frap.DataShapeError{Row: -1, Column: g + 1, Reason: fmt.Sprintf("group %s has %d values, want %d", label, len(col), len(t.Times))}
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &frap.DataShapeError{Row: i, Column: g + 1, Reason: "non-finite value"}
			}
		}
	}
	return nil
}

// Tidy flattens the table into (time, group, value) rows, group by group.
func (t *Table) Tidy() []Observation {
	obs := make([]Observation, 0, t.NumObs()*t.NumGroups())
	for g, col := range t.Values {
		for i, v := range col {
			obs = append(obs, Observation{Time: t.Times[i], Group: t.Labels[g], Value: v})
		}
	}
	return obs
}

// GroupIndex maps each label to its column index.
func (t *Table) GroupIndex() map[string]int {
	idx := make(map[string]int, len(t.Labels))
	for i, l := range t.Labels {
		idx[l] = i
	}
	return idx
}

// MeanResponse is the mean across groups at each time index.
func (t *Table) MeanResponse() []float64 {
	mean := make([]float64, t.NumObs())
	if t.NumGroups() == 0 {
		return mean
	}
	for _, col := range t.Values {
		for i, v := range col {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(t.NumGroups())
	}
	return mean
}

// Column returns the values for label, or nil if absent.
func (t *Table) Column(label string) []float64 {
	for i, l := range t.Labels {
		if l == label {
			return t.Values[i]
		}
	}
	return nil
}
