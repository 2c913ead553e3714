package fit

import (
	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/frap"
)

// InitialGuess derives shared starting values from the across-group mean
// response.
//
// f0 and finf are the mean response at the first and last time. thalf is the
// midpoint of the first adjacent time pair whose responses bracket
// (f0+finf)/2 from below. When no pair brackets it, thalf falls back to the
// midpoint of the time range. Only the first crossing counts and the mean
// curve is not checked for monotonicity.
func InitialGuess(t *dataset.Table) (frap.ParameterSet, error) {
	if err := t.Validate(); err != nil {
		return frap.ParameterSet{}, err
	}
	n := t.NumObs()
	if n < 2 {
		return frap.ParameterSet{}, frap.NewShapeError("need at least 2 time points to estimate thalf, got %d", n)
	}

	mean := t.MeanResponse()
	f0 := mean[0]
	finf := mean[n-1]
	target := (f0 + finf) / 2

	thalf := (t.Times[0] + t.Times[n-1]) / 2
	for i := 1; i < n; i++ {
		prev, cur := mean[i-1], mean[i]
		if prev <= target && target <= cur {
			thalf = (t.Times[i-1] + t.Times[i]) / 2
			break
		}
	}

	return frap.ParameterSet{THalf: thalf, F0: f0, FInf: finf}, nil
}
