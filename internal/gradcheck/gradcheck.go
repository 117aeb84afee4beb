// Package gradcheck compares reverse-mode adjoints with central finite
// differences.
package gradcheck

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/born-ml/adgraph/internal/autodiff"
)

// Default settings.
const (
	DefaultStep      = 1e-6
	DefaultTolerance = 1e-5
)

// ErrNoVariables is returned when Check is called without variables.
var ErrNoVariables = errors.New("gradcheck: no variables to check")

// Options configures Check.
type Options struct {
	Step      float64 // Finite-difference step (default: DefaultStep)
	Tolerance float64 // Accepted absolute or relative error (default: DefaultTolerance)
}

// Result is the comparison for one variable.
type Result struct {
	Name     string
	Analytic float64
	Numeric  float64
	AbsErr   float64
	RelErr   float64
	OK       bool
}

// Report collects the results of one Check call.
type Report struct {
	Value   float64 // Value of the function at the checked point
	Results []Result
}

// OK reports whether every variable passed.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// Check differentiates f with respect to each leaf in wrt twice: once with
// a backward pass and once numerically with gonum's central difference
// formula.
//
// Pending contributions of the session are cleared before the backward
// pass. Leaf values are restored before Check returns. A variable f does
// not depend on has an analytic derivative of 0.
func Check(f autodiff.Var, wrt []autodiff.Var, opts Options) (*Report, error) {
	if len(wrt) == 0 {
		return nil, ErrNoVariables
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	s := f.Session()
	origin := make([]float64, len(wrt))
	for i, v := range wrt {
		if v.Session() != s {
			return nil, fmt.Errorf("gradcheck %s: %w", v.Name(), autodiff.ErrForeignVar)
		}
		if !v.IsLeaf() {
			return nil, fmt.Errorf("gradcheck %s: %w", v.Name(), autodiff.ErrNotLeaf)
		}
		origin[i] = v.Value()
	}

	value := f.Value()
	analytic, err := adjoints(f, wrt)
	if err != nil {
		return nil, err
	}

	numeric := fd.Gradient(nil, func(x []float64) float64 {
		for i, v := range wrt {
			// Leaves were checked above.
			_ = v.SetValue(x[i])
		}
		return f.Value()
	}, append([]float64(nil), origin...), &fd.Settings{
		Formula: fd.Central,
		Step:    opts.Step,
	})

	for i, v := range wrt {
		_ = v.SetValue(origin[i])
	}
	f.Value()

	r := &Report{Value: value, Results: make([]Result, len(wrt))}
	for i, v := range wrt {
		abs := math.Abs(analytic[i] - numeric[i])
		rel := abs / math.Max(math.Max(math.Abs(analytic[i]), math.Abs(numeric[i])), math.SmallestNonzeroFloat64)
		r.Results[i] = Result{
			Name:     v.Name(),
			Analytic: analytic[i],
			Numeric:  numeric[i],
			AbsErr:   abs,
			RelErr:   rel,
			OK:       abs <= opts.Tolerance || rel <= opts.Tolerance,
		}
	}
	return r, nil
}

func adjoints(f autodiff.Var, wrt []autodiff.Var) ([]float64, error) {
	f.Session().ZeroGradient()
	if err := f.Backward(); err != nil {
		return nil, fmt.Errorf("gradcheck: backward: %w", err)
	}

	out := make([]float64, len(wrt))
	for i, v := range wrt {
		if !f.DependsOn(v) {
			continue
		}
		g, err := v.Grad()
		if err != nil {
			return nil, fmt.Errorf("gradcheck %s: %w", v.Name(), err)
		}
		out[i] = g
	}
	return out, nil
}
