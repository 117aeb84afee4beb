// Package config loads adgraph settings from a YAML file, an optional .env
// file and ADGRAPH_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/adgraph/internal/autodiff"
	"github.com/born-ml/adgraph/internal/gradcheck"
	"github.com/born-ml/adgraph/internal/optim"
	"github.com/born-ml/adgraph/internal/parallel"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ADGRAPH_"

// Config is the full adgraph configuration.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Optim     OptimConfig     `yaml:"optim"`
	GradCheck GradCheckConfig `yaml:"gradcheck"`
	Sweep     SweepConfig     `yaml:"sweep"`
}

// SessionConfig configures autodiff sessions.
type SessionConfig struct {
	NamePrefix string `yaml:"name_prefix" validate:"required,max=32,printascii"`
	Order      string `yaml:"order" validate:"oneof=dfs reinsertion"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// OptimConfig configures the minimize command.
type OptimConfig struct {
	Optimizer string  `yaml:"optimizer" validate:"oneof=sgd adam"`
	Steps     int     `yaml:"steps" validate:"gte=1,lte=1000000"`
	LR        float64 `yaml:"lr" validate:"gt=0"`
	Momentum  float64 `yaml:"momentum" validate:"gte=0,lt=1"`
	Beta1     float64 `yaml:"beta1" validate:"gt=0,lt=1"`
	Beta2     float64 `yaml:"beta2" validate:"gt=0,lt=1"`
	Eps       float64 `yaml:"eps" validate:"gt=0"`
}

// GradCheckConfig configures the check command.
type GradCheckConfig struct {
	Step      float64 `yaml:"step" validate:"gt=0"`
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
}

// SweepConfig configures the sweep command.
type SweepConfig struct {
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"` // 0 uses one worker per CPU
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Session: SessionConfig{
			NamePrefix: autodiff.DefaultNamePrefix,
			Order:      autodiff.OrderDFS.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Optim: OptimConfig{
			Optimizer: "sgd",
			Steps:     100,
			LR:        0.01,
			Beta1:     0.9,
			Beta2:     0.999,
			Eps:       1e-8,
		},
		GradCheck: GradCheckConfig{
			Step:      gradcheck.DefaultStep,
			Tolerance: gradcheck.DefaultTolerance,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and the ADGRAPH_* environment, then validates the
// result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read the config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding variables already set. An empty path
// loads ".env" if it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyEnv overrides fields from ADGRAPH_<SECTION>_<FIELD> variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	float := func(key string, dst *float64) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
		*dst = f
		return nil
	}

	str("SESSION_NAME_PREFIX", &c.Session.NamePrefix)
	str("SESSION_ORDER", &c.Session.Order)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("OPTIM_OPTIMIZER", &c.Optim.Optimizer)

	if v, ok := lookup(EnvPrefix + "OPTIM_STEPS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sOPTIM_STEPS: %w", EnvPrefix, err)
		}
		c.Optim.Steps = n
	}

	for key, dst := range map[string]*float64{
		"OPTIM_LR":            &c.Optim.LR,
		"OPTIM_MOMENTUM":      &c.Optim.Momentum,
		"OPTIM_BETA1":         &c.Optim.Beta1,
		"OPTIM_BETA2":         &c.Optim.Beta2,
		"OPTIM_EPS":           &c.Optim.Eps,
		"GRADCHECK_STEP":      &c.GradCheck.Step,
		"GRADCHECK_TOLERANCE": &c.GradCheck.Tolerance,
	} {
		if err := float(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "SWEEP_WORKERS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sSWEEP_WORKERS: %w", EnvPrefix, err)
		}
		c.Sweep.Workers = n
	}
	return nil
}

// Logger builds the slog logger described by c.Log.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SessionOptions returns the autodiff options described by c.Session.
func (c *Config) SessionOptions(logger *slog.Logger, metrics *autodiff.Metrics) (autodiff.Options, error) {
	order, err := autodiff.ParseOrder(c.Session.Order)
	if err != nil {
		return autodiff.Options{}, err
	}
	return autodiff.Options{
		NamePrefix: c.Session.NamePrefix,
		Order:      order,
		Logger:     logger,
		Metrics:    metrics,
	}, nil
}

// Optimizer builds the optimizer described by c.Optim over params.
func (c *Config) Optimizer(params []autodiff.Var) (optim.Optimizer, error) {
	switch c.Optim.Optimizer {
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{
			LR:       c.Optim.LR,
			Momentum: c.Optim.Momentum,
		}), nil
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{
			LR:    c.Optim.LR,
			Betas: [2]float64{c.Optim.Beta1, c.Optim.Beta2},
			Eps:   c.Optim.Eps,
		}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", c.Optim.Optimizer)
	}
}

// GradCheckOptions returns the gradcheck options described by c.GradCheck.
func (c *Config) GradCheckOptions() gradcheck.Options {
	return gradcheck.Options{
		Step:      c.GradCheck.Step,
		Tolerance: c.GradCheck.Tolerance,
	}
}

// ParallelConfig returns the worker settings described by c.Sweep.
func (c *Config) ParallelConfig() parallel.Config {
	return parallel.DefaultConfig().WithWorkers(c.Sweep.Workers)
}
