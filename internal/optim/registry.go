package optim

import (
	"fmt"
	"sort"
)

var solvers = map[string]func(Settings) Solver{
	"lm":           func(s Settings) Solver { return NewLevenbergMarquardt(s) },
	"gauss-newton": func(s Settings) Solver { return NewGaussNewton(s) },
}

// New returns the named solver configured with s.
func New(name string, s Settings) (Solver, error) {
	fn, ok := solvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver: %s (available: %v)", name, List())
	}
	return fn(s), nil
}

func List() []string {
	names := make([]string, 0, len(solvers))
	for name := range solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
