package autodiff

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	s := New(Options{Metrics: m})
	defer s.Close()

	x, y := s.Var(1), s.Var(2)
	z := x.Mul(y).Sin()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.nodesCreated.WithLabelValues("leaf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodesCreated.WithLabelValues("mul")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodesCreated.WithLabelValues("sin")))

	require.NoError(t, z.Backward())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backwardPasses))

	// Seed leaf added by the pass.
	assert.Equal(t, 3.0, testutil.ToFloat64(m.nodesCreated.WithLabelValues("leaf")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "adgraph_backward_duration_seconds")
	assert.Contains(t, names, "adgraph_backward_nodes")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.nodeCreated(0)
		m.backwardDone(3, 0)
	})
}

func TestMetrics_SharedAcrossSessions(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	for range 2 {
		s := New(Options{Metrics: m})
		require.NoError(t, s.Var(1).Exp().Backward())
		s.Close()
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.backwardPasses))
}
