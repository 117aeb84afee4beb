// Package main provides the adgraph CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/born-ml/adgraph/internal/autodiff"
	"github.com/born-ml/adgraph/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// app holds the state shared by every command.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	order      string

	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *autodiff.Metrics
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "adgraph",
		Short:         "Reverse-mode automatic differentiation of scalar expressions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.envFile, "env-file", "", "file of ADGRAPH_* variables (default: .env if present)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.order, "order", "", "backward traversal order: dfs or reinsertion")

	root.AddCommand(
		a.evalCmd(),
		a.checkCmd(),
		a.minimizeCmd(),
		a.sweepCmd(),
		a.inspectCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger and metrics registry.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.order != "" {
		cfg.Session.Order = a.order
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	a.registry = prometheus.NewRegistry()
	a.metrics = autodiff.NewMetrics(a.registry)

	a.logger.Debug("configuration loaded",
		slog.String("config", a.configPath),
		slog.String("order", cfg.Session.Order))
	return nil
}

// newSession creates a session from the loaded configuration.
func (a *app) newSession() (*autodiff.Session, error) {
	opts, err := a.cfg.SessionOptions(a.logger, a.metrics)
	if err != nil {
		return nil, err
	}
	return autodiff.New(opts), nil
}
