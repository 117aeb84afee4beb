// Package sweep evaluates an expression and its derivatives over a grid of
// variable values.
//
// Every grid point is compiled into its own session, so points are
// evaluated concurrently without sharing graph state.
package sweep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/adgraph/internal/autodiff"
	"github.com/born-ml/adgraph/internal/expr"
	"github.com/born-ml/adgraph/internal/parallel"
)

// ErrInvalidAxis is returned for a malformed axis description.
var ErrInvalidAxis = errors.New("invalid axis")

// Axis is a variable swept over Num evenly spaced values from Start to
// Stop inclusive.
type Axis struct {
	Name  string
	Start float64
	Stop  float64
	Num   int
}

// ParseAxis parses "name=start:stop:num".
func ParseAxis(s string) (Axis, error) {
	name, rng, ok := strings.Cut(s, "=")
	if !ok {
		return Axis{}, fmt.Errorf("%w: %q, want name=start:stop:num", ErrInvalidAxis, s)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return Axis{}, fmt.Errorf("%w: %q, want name=start:stop:num", ErrInvalidAxis, s)
	}

	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Axis{}, fmt.Errorf("%w: start: %v", ErrInvalidAxis, err)
	}
	stop, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Axis{}, fmt.Errorf("%w: stop: %v", ErrInvalidAxis, err)
	}
	num, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || num < 1 {
		return Axis{}, fmt.Errorf("%w: num must be a positive integer, got %q", ErrInvalidAxis, parts[2])
	}
	return Axis{Name: strings.TrimSpace(name), Start: start, Stop: stop, Num: num}, nil
}

// Values returns the points of the axis.
func (a Axis) Values() []float64 {
	if a.Num == 1 {
		return []float64{a.Start}
	}
	out := make([]float64, a.Num)
	step := (a.Stop - a.Start) / float64(a.Num-1)
	for i := range out {
		out[i] = a.Start + float64(i)*step
	}
	out[a.Num-1] = a.Stop
	return out
}

// Point is the result at one grid point.
type Point struct {
	Bindings []expr.Binding // Fixed bindings first, then one per axis
	Value    float64
	Grads    []float64 // ∂f/∂binding, in Bindings order
}

// Options configures Run.
type Options struct {
	Session  autodiff.Options // Options of each per-point session
	Parallel parallel.Config
}

// Run evaluates src at every point of the cartesian product of axes, with
// fixed bound at every point. Points are returned in row-major order, the
// last axis varying fastest.
func Run(src string, fixed []expr.Binding, axes []Axis, opts Options) ([]Point, error) {
	n := 1
	values := make([][]float64, len(axes))
	for k, a := range axes {
		if a.Num < 1 {
			return nil, fmt.Errorf("%w: %s has %d points", ErrInvalidAxis, a.Name, a.Num)
		}
		values[k] = a.Values()
		n *= a.Num
	}

	// Compile once up front so syntax and binding errors surface once.
	probe := autodiff.New(autodiff.Options{})
	_, err := expr.Parse(probe, src, grid(fixed, axes, values, 0))
	probe.Close()
	if err != nil {
		return nil, err
	}

	errs := make([]error, n)
	points := parallel.Map(n, func(i int) Point {
		p, err := evaluate(src, grid(fixed, axes, values, i), opts.Session)
		errs[i] = err
		return p
	}, opts.Parallel)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return points, nil
}

// grid returns the bindings of the i-th point.
func grid(fixed []expr.Binding, axes []Axis, values [][]float64, i int) []expr.Binding {
	out := make([]expr.Binding, len(fixed)+len(axes))
	copy(out, fixed)
	for k := len(axes) - 1; k >= 0; k-- {
		out[len(fixed)+k] = expr.Binding{Name: axes[k].Name, Value: values[k][i%axes[k].Num]}
		i /= axes[k].Num
	}
	return out
}

func evaluate(src string, bindings []expr.Binding, opts autodiff.Options) (Point, error) {
	s := autodiff.New(opts)
	defer s.Close()

	e, err := expr.Parse(s, src, bindings)
	if err != nil {
		return Point{}, err
	}

	p := Point{Bindings: bindings, Value: e.Output.Value(), Grads: make([]float64, len(e.Vars))}
	if err := e.Output.Backward(); err != nil {
		return Point{}, err
	}
	for i, v := range e.Vars {
		if !e.Output.DependsOn(v.Var) {
			continue
		}
		if p.Grads[i], err = v.Var.Grad(); err != nil {
			return Point{}, err
		}
	}
	return p, nil
}
