package frap

import (
	"errors"
	"fmt"
)

// Error kinds for the fitting pipeline. All of them are fatal.
var (
	// ErrDomain indicates model parameters outside the model's domain (thalf = 0).
	ErrDomain = errors.New("frap: parameter outside model domain")

	// ErrNoConvergence indicates the optimizer exhausted its iteration budget.
	ErrNoConvergence = errors.New("frap: fit did not converge")

	// ErrSingularJacobian indicates the normal equations could not be solved.
	ErrSingularJacobian = errors.New("frap: singular jacobian")

	// ErrInsufficientData indicates fewer observations than free parameters.
	ErrInsufficientData = errors.New("frap: fewer observations than parameters")

	// ErrDataShape indicates a malformed observation table.
	ErrDataShape = errors.New("frap: malformed observation table")
)

// Process exit codes, one per error kind.
const (
	ExitSuccess     = 0
	ExitGeneric     = 1
	ExitDomain      = 3
	ExitConvergence = 4
	ExitDataShape   = 5
	ExitConfig      = 6
)

// DomainError reports a parameter value the model cannot be evaluated at.
type DomainError struct {
	Param string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%v: %s=%g", ErrDomain, e.Param, e.Value)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// ConvergenceError wraps an optimizer failure with fit context.
type ConvergenceError struct {
	Mode       string
	Iterations int
	RSS        float64
	Wrapped    error
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s fit: %v (after %d iterations, rss=%g)", e.Mode, e.Wrapped, e.Iterations, e.RSS)
}

func (e *ConvergenceError) Unwrap() error { return e.Wrapped }

// DataShapeError locates a problem in an observation table. Row and Column are
// zero-based; -1 means the whole row or column.
type DataShapeError struct {
	Row    int
	Column int
	Reason string
}

func (e *DataShapeError) Error() string {
	switch {
	case e.Row >= 0 && e.Column >= 0:
		return fmt.Sprintf("%v: row %d, column %d: %s", ErrDataShape, e.Row, e.Column, e.Reason)
	case e.Column >= 0:
		return fmt.Sprintf("%v: column %d: %s", ErrDataShape, e.Column, e.Reason)
	case e.Row >= 0:
		return fmt.Sprintf("%v: row %d: %s", ErrDataShape, e.Row, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrDataShape, e.Reason)
}

func (e *DataShapeError) Unwrap() error { return ErrDataShape }

// NewShapeError builds a table-level DataShapeError.
func NewShapeError(format string, a ...any) error {
	return &DataShapeError{Row: -1, Column: -1, Reason: fmt.Sprintf(format, a...)}
}

// ConfigError represents invalid user configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ExitCode maps err to the process exit status for its kind.
func ExitCode(err error) int {
	var cfgErr ConfigError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrDomain):
		return ExitDomain
	case errors.Is(err, ErrNoConvergence), errors.Is(err, ErrSingularJacobian), errors.Is(err, ErrInsufficientData):
		return ExitConvergence
	case errors.Is(err, ErrDataShape):
		return ExitDataShape
	case errors.As(err, &cfgErr):
		return ExitConfig
	}
	return ExitGeneric
}
