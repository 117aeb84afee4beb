package sweep_test

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/adgraph/internal/autodiff"
	"github.com/born-ml/adgraph/internal/expr"
	"github.com/born-ml/adgraph/internal/parallel"
	"github.com/born-ml/adgraph/internal/sweep"
)

func TestParseAxis(t *testing.T) {
	a, err := sweep.ParseAxis("x=0:2:5")
	require.NoError(t, err)
	assert.Equal(t, sweep.Axis{Name: "x", Start: 0, Stop: 2, Num: 5}, a)

	for _, in := range []string{"x", "x=0:1", "x=a:1:2", "x=0:b:2", "x=0:1:0", "x=0:1:c"} {
		_, err := sweep.ParseAxis(in)
		assert.ErrorIs(t, err, sweep.ErrInvalidAxis, in)
	}
}

func TestAxis_Values(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2}, sweep.Axis{Start: 0, Stop: 2, Num: 5}.Values())
	assert.Equal(t, []float64{3}, sweep.Axis{Start: 3, Stop: 9, Num: 1}.Values())
	assert.Equal(t, []float64{1, 0}, sweep.Axis{Start: 1, Stop: 0, Num: 2}.Values())
}

func TestRun_Grid(t *testing.T) {
	fixed := []expr.Binding{{Name: "y", Value: 5}}
	axes := []sweep.Axis{{Name: "x", Start: 1, Stop: 3, Num: 3}}

	for _, cfg := range []parallel.Config{{Enabled: false}, {Enabled: true, NumWorkers: 3, MinChunkSize: 1}} {
		points, err := sweep.Run("log(x) + x*y - sin(y)", fixed, axes, sweep.Options{Parallel: cfg})
		require.NoError(t, err)
		require.Len(t, points, 3)

		for i, p := range points {
			x := float64(i + 1)
			assert.Equal(t, []expr.Binding{{Name: "y", Value: 5}, {Name: "x", Value: x}}, p.Bindings)
			assert.InDelta(t, math.Log(x)+5*x-math.Sin(5), p.Value, 1e-12)
			assert.InDelta(t, x-math.Cos(5), p.Grads[0], 1e-12)
			assert.InDelta(t, 1/x+5, p.Grads[1], 1e-12)
		}
	}
}

func TestRun_RowMajor(t *testing.T) {
	axes := []sweep.Axis{
		{Name: "a", Start: 0, Stop: 1, Num: 2},
		{Name: "b", Start: 10, Stop: 30, Num: 3},
	}
	points, err := sweep.Run("a + b", nil, axes, sweep.Options{Parallel: parallel.DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, points, 6)

	want := []float64{10, 20, 30, 11, 21, 31}
	for i, p := range points {
		assert.Equal(t, want[i], p.Value)
		assert.Equal(t, []float64{1, 1}, p.Grads)
	}
}

func TestRun_NoAxes(t *testing.T) {
	points, err := sweep.Run("x*x", []expr.Binding{{Name: "x", Value: 3}}, nil, sweep.Options{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 9.0, points[0].Value)
	assert.Equal(t, []float64{6}, points[0].Grads)
}

func TestRun_IndependentVariable(t *testing.T) {
	axes := []sweep.Axis{{Name: "z", Start: 0, Stop: 1, Num: 2}}
	points, err := sweep.Run("exp(x)", []expr.Binding{{Name: "x", Value: 0}}, axes, sweep.Options{})
	require.NoError(t, err)
	for _, p := range points {
		assert.Equal(t, []float64{1, 0}, p.Grads)
	}
}

func TestRun_SharedMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := sweep.Options{
		Session:  autodiff.Options{Metrics: autodiff.NewMetrics(reg)},
		Parallel: parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1},
	}
	axes := []sweep.Axis{{Name: "x", Start: 0, Stop: 1, Num: 16}}

	_, err := sweep.Run("sin(x)", nil, axes, opts)
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "adgraph_backward_passes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "adgraph_backward_passes_total" {
			assert.Equal(t, 16.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestRun_Errors(t *testing.T) {
	_, err := sweep.Run("x + z", nil, []sweep.Axis{{Name: "x", Start: 0, Stop: 1, Num: 2}}, sweep.Options{})
	assert.ErrorIs(t, err, expr.ErrUnboundVariable)

	_, err = sweep.Run("x", nil, []sweep.Axis{{Name: "x", Num: 0}}, sweep.Options{})
	assert.ErrorIs(t, err, sweep.ErrInvalidAxis)

	_, err = sweep.Run("x", []expr.Binding{{Name: "x", Value: 1}}, []sweep.Axis{{Name: "x", Num: 1}}, sweep.Options{})
	assert.ErrorIs(t, err, expr.ErrInvalidBinding)
}
