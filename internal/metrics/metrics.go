// Package metrics accumulates goodness-of-fit statistics from
// (observed, predicted) pairs.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metric observes one residual at a time.
type Metric interface {
	Name() string
	Observe(observed, predicted float64)
	Value() float64
	Reset()
}

type RSS struct {
	sum float64
}

func NewRSS() *RSS { return &RSS{} }

func (m *RSS) Name() string { return "rss" }

func (m *RSS) Observe(observed, predicted float64) {
	d := observed - predicted
	m.sum += d * d
}

func (m *RSS) Value() float64 { return m.sum }
func (m *RSS) Reset()         { m.sum = 0 }

type RMSE struct {
	sum float64
	n   int
}

func NewRMSE() *RMSE { return &RMSE{} }

func (m *RMSE) Name() string { return "rmse" }

func (m *RMSE) Observe(observed, predicted float64) {
	d := observed - predicted
	m.sum += d * d
	m.n++
}

func (m *RMSE) Value() float64 {
	if m.n == 0 {
		return 0
	}
	return math.Sqrt(m.sum / float64(m.n))
}

func (m *RMSE) Reset() { m.sum, m.n = 0, 0 }

// RSquared is the coefficient of determination 1 - RSS/TSS.
type RSquared struct {
	observed  []float64
	predicted []float64
}

func NewRSquared() *RSquared { return &RSquared{} }

func (m *RSquared) Name() string { return "r2" }

func (m *RSquared) Observe(observed, predicted float64) {
	m.observed = append(m.observed, observed)
	m.predicted = append(m.predicted, predicted)
}

func (m *RSquared) Value() float64 {
	if len(m.observed) < 2 {
		return 0
	}
	return stat.RSquaredFrom(m.predicted, m.observed, nil)
}

func (m *RSquared) Reset() {
	m.observed = m.observed[:0]
	m.predicted = m.predicted[:0]
}

// AIC is the least-squares Akaike criterion n*ln(RSS/n) + 2k.
type AIC struct {
	k   int
	rss RSS
	n   int
}

func NewAIC(numParams int) *AIC { return &AIC{k: numParams} }

func (m *AIC) Name() string { return "aic" }

func (m *AIC) Observe(observed, predicted float64) {
	m.rss.Observe(observed, predicted)
	m.n++
}

func (m *AIC) Value() float64 {
	if m.n == 0 {
		return 0
	}
	n := float64(m.n)
	return n*math.Log(m.rss.Value()/n) + 2*float64(m.k)
}

func (m *AIC) Reset() {
	m.rss.Reset()
	m.n = 0
}

// Default returns the set recorded for every fit.
func Default(numParams int) []Metric {
	return []Metric{NewRSS(), NewRMSE(), NewRSquared(), NewAIC(numParams)}
}

// Collect runs every metric over the paired slices and returns name -> value.
func Collect(ms []Metric, observed, predicted []float64) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for i := range observed {
			m.Observe(observed[i], predicted[i])
		}
		out[m.Name()] = m.Value()
	}
	return out
}
