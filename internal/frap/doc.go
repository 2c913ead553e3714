// Package frap provides the FRAP recovery model and the error kinds shared by
// the rest of the pipeline.
//
// The model describes fluorescence recovering from f0 (just after bleaching)
// towards finf (full recovery), passing the midpoint at thalf:
//
//	F(t) = (f0 + finf*(t/thalf)) / (1 + t/thalf)
//
//   - [ParameterSet]: the three free parameters of one observation group
//   - [Evaluate]: the model at a single time point
//   - [DomainError], [ConvergenceError], [DataShapeError]: fatal error kinds
//
// # Example
//
//	p := frap.ParameterSet{THalf: 11, F0: 0.1, FInf: 2.1}
//	y, err := p.At(11) // 1.1
package frap
