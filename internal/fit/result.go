package fit

import (
	"fmt"

	"github.com/san-kum/frapfit/internal/frap"
)

// Result is a fitted model. A pooled fit has the single key PooledKey in
// Params; a grouped fit has one key per group label.
type Result struct {
	Mode       Mode                         `json:"mode"`
	Labels     []string                     `json:"labels"`
	Params     map[string]frap.ParameterSet `json:"params"`
	RSS        float64                      `json:"rss"`
	NumObs     int                          `json:"num_obs"`
	NumParams  int                          `json:"num_params"`
	Iterations int                          `json:"iterations"`
	Converged  bool                         `json:"converged"`
	Solver     string                       `json:"solver"`
	Metrics    map[string]float64           `json:"metrics"`
}

// DF is the residual degrees of freedom.
func (r *Result) DF() int { return r.NumObs - r.NumParams }

func (r *Result) ResidualSS() float64 { return r.RSS }

// ParamsFor returns the parameter set that applies to group label. A pooled
// fit returns its shared set for every label.
func (r *Result) ParamsFor(label string) (frap.ParameterSet, error) {
	if r.Mode == ModePooled {
		return r.Params[PooledKey], nil
	}
	p, ok := r.Params[label]
	if !ok {
		return frap.ParameterSet{}, fmt.Errorf("no fitted parameters for group %q", label)
	}
	return p, nil
}

// Predict evaluates the fitted curve for label at each time in ts.
func (r *Result) Predict(label string, ts []float64) ([]float64, error) {
	p, err := r.ParamsFor(label)
	if err != nil {
		return nil, err
	}
	return p.Curve(ts)
}
