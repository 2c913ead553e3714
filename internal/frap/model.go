package frap

import (
	"fmt"
	"math"
)

// ParameterSet is one group's (thalf, f0, finf) triple.
type ParameterSet struct {
	THalf float64 `json:"thalf" yaml:"thalf"`
	F0    float64 `json:"f0" yaml:"f0"`
	FInf  float64 `json:"finf" yaml:"finf"`
}

// NumParams is the number of free parameters in a ParameterSet.
const NumParams = 3

// Evaluate computes the recovery curve at t. It fails with a DomainError when
// thalf is zero.
func Evaluate(t, thalf, f0, finf float64) (float64, error) {
	if thalf == 0 {
		return math.NaN(), &DomainError{Param: "thalf", Value: thalf}
	}
	u := t / thalf
	return (f0 + finf*u) / (1 + u), nil
}

func (p ParameterSet) At(t float64) (float64, error) {
	return Evaluate(t, p.THalf, p.F0, p.FInf)
}

// Curve evaluates p at every time in ts.
func (p ParameterSet) Curve(ts []float64) ([]float64, error) {
	out := make([]float64, len(ts))
	for i, t := range ts {
		y, err := p.At(t)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

// Gradient returns the partial derivatives of the model at t with respect to
// thalf, f0 and finf, in that order.
func (p ParameterSet) Gradient(t float64) ([NumParams]float64, error) {
	if p.THalf == 0 {
		return [NumParams]float64{}, &DomainError{Param: "thalf", Value: p.THalf}
	}
	u := t / p.THalf
	d := 1 + u
	return [NumParams]float64{
		-(p.FInf - p.F0) / (d * d) * t / (p.THalf * p.THalf),
		1 / d,
		u / d,
	}, nil
}

// Validate rejects non-positive thalf and non-finite fields.
func (p ParameterSet) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"thalf", p.THalf}, {"f0", p.F0}, {"finf", p.FInf}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &DomainError{Param: f.name, Value: f.v}
		}
	}
	if p.THalf <= 0 {
		return &DomainError{Param: "thalf", Value: p.THalf}
	}
	return nil
}

// Vector flattens p into the order used by Gradient.
func (p ParameterSet) Vector() []float64 {
	return []float64{p.THalf, p.F0, p.FInf}
}

// FromVector is the inverse of Vector. v must hold at least NumParams values.
func FromVector(v []float64) ParameterSet {
	return ParameterSet{THalf: v[0], F0: v[1], FInf: v[2]}
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("thalf=%.4f f0=%.4f finf=%.4f", p.THalf, p.F0, p.FInf)
}
