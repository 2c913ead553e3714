// Package compare tests whether a model with more parameters fits
// significantly better than the nested model it extends.
package compare

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Fit is the part of a least-squares fit the comparison needs.
type Fit interface {
	ResidualSS() float64
	DF() int
}

// FTestResult is the extra-sum-of-squares F-test of a reduced model against
// a full model that nests it.
type FTestResult struct {
	F          float64 `json:"f"`
	DFNum      int     `json:"df_num"`
	DFDen      int     `json:"df_den"`
	DFReduced  int     `json:"df_reduced"`
	RSSReduced float64 `json:"rss_reduced"`
	RSSFull    float64 `json:"rss_full"`
	P          float64 `json:"p"`
}

// Nested compares reduced (fewer parameters) against full.
func Nested(reduced, full Fit) (*FTestResult, error) {
	return FTest(reduced.ResidualSS(), reduced.DF(), full.ResidualSS(), full.DF())
}

// FTest computes F = ((rssR-rssF)/(dfR-dfF)) / (rssF/dfF) and its upper-tail
// probability under F(dfR-dfF, dfF).
func FTest(rssReduced float64, dfReduced int, rssFull float64, dfFull int) (*FTestResult, error) {
	if dfFull <= 0 {
		return nil, fmt.Errorf("compare: full model has %d residual degrees of freedom", dfFull)
	}
	dfNum := dfReduced - dfFull
	if dfNum <= 0 {
		return nil, fmt.Errorf("compare: models are not nested (df %d vs %d)", dfReduced, dfFull)
	}
	if rssReduced < 0 || rssFull < 0 || math.IsNaN(rssReduced) || math.IsNaN(rssFull) {
		return nil, fmt.Errorf("compare: invalid residual sums of squares %g, %g", rssReduced, rssFull)
	}

	res := &FTestResult{
		DFNum:      dfNum,
		DFDen:      dfFull,
		DFReduced:  dfReduced,
		RSSReduced: rssReduced,
		RSSFull:    rssFull,
	}

	switch {
	case rssFull == 0 && rssReduced == 0:
		res.F, res.P = 0, 1
		return res, nil
	case rssFull == 0:
		res.F, res.P = math.Inf(1), 0
		return res, nil
	}

	// A full model can only end above the reduced one through solver error.
	extra := math.Max(rssReduced-rssFull, 0)
	res.F = (extra / float64(dfNum)) / (rssFull / float64(dfFull))

	dist := distuv.F{D1: float64(dfNum), D2: float64(dfFull)}
	res.P = dist.Survival(res.F)
	return res, nil
}

// Significant reports whether p falls below alpha.
func (r *FTestResult) Significant(alpha float64) bool {
	return r.P < alpha
}

func (r *FTestResult) String() string {
	return fmt.Sprintf("F(%d, %d) = %.4g, p = %.4g", r.DFNum, r.DFDen, r.F, r.P)
}
