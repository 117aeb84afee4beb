package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/adgraph/internal/autodiff"
	"github.com/born-ml/adgraph/internal/config"
	"github.com/born-ml/adgraph/internal/optim"
	"github.com/born-ml/adgraph/internal/parallel"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "v", cfg.Session.NamePrefix)
	assert.Equal(t, "dfs", cfg.Session.Order)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sgd", cfg.Optim.Optimizer)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "adgraph.yaml", `
session:
  name_prefix: n
  order: reinsertion
log:
  level: debug
  format: json
optim:
  optimizer: adam
  lr: 0.05
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "n", cfg.Session.NamePrefix)
	assert.Equal(t, "reinsertion", cfg.Session.Order)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "adam", cfg.Optim.Optimizer)
	assert.Equal(t, 0.05, cfg.Optim.LR)
	// Untouched fields keep their defaults.
	assert.Equal(t, 100, cfg.Optim.Steps)
	assert.Equal(t, config.Default().GradCheck, cfg.GradCheck)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "session:\n  colour: red\n"},
		{"bad order", "session:\n  order: bfs\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"negative lr", "optim:\n  lr: -1\n"},
		{"momentum out of range", "optim:\n  momentum: 1\n"},
		{"zero beta1", "optim:\n  beta1: 0\n"},
		{"beta2 out of range", "optim:\n  beta2: 1\n"},
		{"zero steps", "optim:\n  steps: 0\n"},
		{"empty prefix", "session:\n  name_prefix: \"\"\n"},
		{"not yaml", "session: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "adgraph.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "adgraph.yaml", "optim:\n  lr: 0.05\n")

	t.Setenv("ADGRAPH_OPTIM_LR", "0.2")
	t.Setenv("ADGRAPH_OPTIM_STEPS", "7")
	t.Setenv("ADGRAPH_SESSION_ORDER", "reinsertion")
	t.Setenv("ADGRAPH_LOG_LEVEL", "warn")
	t.Setenv("ADGRAPH_GRADCHECK_TOLERANCE", "1e-3")
	t.Setenv("ADGRAPH_OPTIM_BETA1", "0.8")
	t.Setenv("ADGRAPH_OPTIM_BETA2", "0.99")
	t.Setenv("ADGRAPH_OPTIM_EPS", "1e-6")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Optim.LR)
	assert.Equal(t, 7, cfg.Optim.Steps)
	assert.Equal(t, "reinsertion", cfg.Session.Order)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 1e-3, cfg.GradCheck.Tolerance)
	assert.Equal(t, 0.8, cfg.Optim.Beta1)
	assert.Equal(t, 0.99, cfg.Optim.Beta2)
	assert.Equal(t, 1e-6, cfg.Optim.Eps)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("ADGRAPH_OPTIM_STEPS", "many")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "ADGRAPH_OPTIM_STEPS")
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, "test.env", "ADGRAPH_OPTIM_OPTIMIZER=adam\n")
	t.Setenv("ADGRAPH_OPTIM_OPTIMIZER", "")
	require.NoError(t, os.Unsetenv("ADGRAPH_OPTIM_OPTIMIZER"))

	require.NoError(t, config.LoadEnvFile(path))
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "adam", cfg.Optim.Optimizer)

	assert.Error(t, config.LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := config.Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	logger := cfg.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.Log.Format = "text"
	cfg.Log.Level = "debug"
	cfg.Logger(&buf).Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestSessionOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Session.NamePrefix = "n"
	cfg.Session.Order = "reinsertion"
	metrics := autodiff.NewMetrics(prometheus.NewRegistry())

	opts, err := cfg.SessionOptions(nil, metrics)
	require.NoError(t, err)
	assert.Equal(t, autodiff.OrderReinsertion, opts.Order)
	assert.Same(t, metrics, opts.Metrics)

	s := autodiff.New(opts)
	assert.Equal(t, "n0", s.Var(1).Name())

	cfg.Session.Order = "random"
	_, err = cfg.SessionOptions(nil, nil)
	assert.ErrorIs(t, err, autodiff.ErrUnknownOrder)
}

func TestOptimizer(t *testing.T) {
	s := autodiff.New(autodiff.Options{})
	x := s.Var(1)

	cfg := config.Default()
	opt, err := cfg.Optimizer([]autodiff.Var{x})
	require.NoError(t, err)
	assert.IsType(t, &optim.SGD{}, opt)
	assert.Equal(t, cfg.Optim.LR, opt.GetLR())

	cfg.Optim.Optimizer = "adam"
	cfg.Optim.LR = 0.3
	opt, err = cfg.Optimizer([]autodiff.Var{x})
	require.NoError(t, err)
	assert.IsType(t, &optim.Adam{}, opt)
	assert.Equal(t, 0.3, opt.GetLR())

	cfg.Optim.Optimizer = "lbfgs"
	_, err = cfg.Optimizer(nil)
	assert.Error(t, err)
}

func TestGradCheckOptions(t *testing.T) {
	cfg := config.Default()
	cfg.GradCheck.Step = 1e-4
	opts := cfg.GradCheckOptions()
	assert.Equal(t, 1e-4, opts.Step)
	assert.Equal(t, cfg.GradCheck.Tolerance, opts.Tolerance)
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Optim.Optimizer = "adam"
	data, err := cfg.Marshal()
	require.NoError(t, err)

	loaded, err := config.Load(writeFile(t, "out.yaml", string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestParallelConfig(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, parallel.DefaultConfig(), cfg.ParallelConfig())

	t.Setenv("ADGRAPH_SWEEP_WORKERS", "1")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, cfg.ParallelConfig().Enabled)

	t.Setenv("ADGRAPH_SWEEP_WORKERS", "-2")
	_, err = config.Load("")
	assert.Error(t, err)
}
