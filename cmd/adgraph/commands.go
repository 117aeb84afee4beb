package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/born-ml/adgraph/internal/autodiff"
	"github.com/born-ml/adgraph/internal/expr"
	"github.com/born-ml/adgraph/internal/gradcheck"
	"github.com/born-ml/adgraph/internal/optim"
	"github.com/born-ml/adgraph/internal/serialization"
	"github.com/born-ml/adgraph/internal/sweep"
)

// errCheckFailed is returned by check when a derivative is out of tolerance.
var errCheckFailed = errors.New("gradient check failed")

func (a *app) evalCmd() *cobra.Command {
	var (
		vars    []string
		dump    bool
		save    string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "eval EXPR",
		Short: "Evaluate an expression and its derivatives",
		Example: `  adgraph eval 'log(x) + x*y - sin(y)' --var x=2 --var y=5
  adgraph eval '-log(sin(x))' --var x=2 --dump --save graph.adg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, e, err := a.compile(args[0], vars)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			value := e.Output.Value()
			if err := e.Output.Backward(); err != nil {
				return err
			}

			fmt.Fprintf(out, "value = %g\n", value)
			for _, v := range e.Vars {
				g, err := gradOf(e.Output, v.Var)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "d/d%s = %g\n", v.Name, g)
			}

			if dump {
				fmt.Fprintln(out)
				if err := s.Dump(out); err != nil {
					return err
				}
			}
			if save != "" {
				h := s.Export(map[string]string{"expr": e.Source})
				if err := serialization.WriteFile(save, h); err != nil {
					return err
				}
				a.logger.Info("snapshot saved", slog.String("path", save), slog.Int("nodes", s.Len()))
			}
			if metrics {
				fmt.Fprintln(out)
				return a.writeMetrics(out)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable binding name=value (repeatable)")
	cmd.Flags().BoolVar(&dump, "dump", false, "print every node of the session")
	cmd.Flags().StringVar(&save, "save", "", "write a snapshot of the session to this file")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print Prometheus metrics after the run")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var (
		vars      []string
		step      float64
		tolerance float64
	)

	cmd := &cobra.Command{
		Use:   "check EXPR",
		Short: "Compare backpropagated derivatives with finite differences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, e, err := a.compile(args[0], vars)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := a.cfg.GradCheckOptions()
			if cmd.Flags().Changed("step") {
				opts.Step = step
			}
			if cmd.Flags().Changed("tolerance") {
				opts.Tolerance = tolerance
			}

			wrt := make([]autodiff.Var, len(e.Vars))
			for i, v := range e.Vars {
				wrt[i] = v.Var
			}
			r, err := gradcheck.Check(e.Output, wrt, opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VAR\tANALYTIC\tNUMERIC\tABS_ERR\tREL_ERR\tOK")
			for i, res := range r.Results {
				fmt.Fprintf(tw, "%s\t%g\t%g\t%.3g\t%.3g\t%t\n",
					e.Vars[i].Name, res.Analytic, res.Numeric, res.AbsErr, res.RelErr, res.OK)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !r.OK() {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable binding name=value (repeatable)")
	cmd.Flags().Float64Var(&step, "step", 0, "finite-difference step (default from config)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "accepted absolute or relative error (default from config)")
	return cmd
}

func (a *app) minimizeCmd() *cobra.Command {
	var (
		vars      []string
		optimizer string
		steps     int
		lr        float64
	)

	cmd := &cobra.Command{
		Use:   "minimize EXPR",
		Short: "Minimize an expression over its variables",
		Example: `  adgraph minimize '(x-3)*(x-3) + (y+1)*(y+1)' --var x=0 --var y=0 --optimizer adam --lr 0.1 --steps 500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("optimizer") {
				cfg.Optim.Optimizer = optimizer
			}
			if cmd.Flags().Changed("steps") {
				cfg.Optim.Steps = steps
			}
			if cmd.Flags().Changed("lr") {
				cfg.Optim.LR = lr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			s, e, err := a.compile(args[0], vars)
			if err != nil {
				return err
			}
			defer s.Close()

			params := make([]autodiff.Var, len(e.Vars))
			for i, v := range e.Vars {
				params[i] = v.Var
			}
			opt, err := cfg.Optimizer(params)
			if err != nil {
				return err
			}

			res, err := optim.Minimize(cmd.Context(), e.Output, opt, cfg.Optim.Steps)
			if err != nil {
				return err
			}
			a.logger.Info("minimize complete",
				slog.String("optimizer", cfg.Optim.Optimizer),
				slog.Int("steps", res.Steps),
				slog.Float64("initial", res.Initial),
				slog.Float64("final", res.Final),
				slog.Int("nodes", s.Len()))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "loss = %g (initial %g, %d steps)\n", res.Final, res.Initial, res.Steps)
			for _, v := range e.Vars {
				fmt.Fprintf(out, "%s = %g\n", v.Name, v.Var.Value())
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "initial value name=value (repeatable)")
	cmd.Flags().StringVar(&optimizer, "optimizer", "", "sgd or adam (default from config)")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (default from config)")
	cmd.Flags().Float64Var(&lr, "lr", 0, "learning rate (default from config)")
	return cmd
}

func (a *app) sweepCmd() *cobra.Command {
	var (
		vars    []string
		ranges  []string
		workers int
	)

	cmd := &cobra.Command{
		Use:     "sweep EXPR",
		Short:   "Evaluate an expression and its derivatives over a grid",
		Example: `  adgraph sweep 'log(x) + x*y - sin(y)' --var y=5 --range x=1:3:5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixed := make([]expr.Binding, 0, len(vars))
			for _, v := range vars {
				b, err := expr.ParseBinding(v)
				if err != nil {
					return err
				}
				fixed = append(fixed, b)
			}
			axes := make([]sweep.Axis, 0, len(ranges))
			for _, r := range ranges {
				ax, err := sweep.ParseAxis(r)
				if err != nil {
					return err
				}
				axes = append(axes, ax)
			}

			sessionOpts, err := a.cfg.SessionOptions(a.logger, a.metrics)
			if err != nil {
				return err
			}
			par := a.cfg.ParallelConfig()
			if cmd.Flags().Changed("workers") {
				par = par.WithWorkers(workers)
			}

			points, err := sweep.Run(args[0], fixed, axes, sweep.Options{Session: sessionOpts, Parallel: par})
			if err != nil {
				return err
			}
			a.logger.Debug("sweep complete", slog.Int("points", len(points)), slog.Int("workers", par.NumWorkers))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if len(points) > 0 {
				for _, b := range points[0].Bindings {
					fmt.Fprintf(tw, "%s\t", b.Name)
				}
				fmt.Fprint(tw, "VALUE")
				for _, b := range points[0].Bindings {
					fmt.Fprintf(tw, "\td/d%s", b.Name)
				}
				fmt.Fprintln(tw)
			}
			for _, p := range points {
				for _, b := range p.Bindings {
					fmt.Fprintf(tw, "%g\t", b.Value)
				}
				fmt.Fprintf(tw, "%g", p.Value)
				for _, g := range p.Grads {
					fmt.Fprintf(tw, "\t%g", g)
				}
				fmt.Fprintln(tw)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "fixed binding name=value (repeatable)")
	cmd.Flags().StringArrayVar(&ranges, "range", nil, "swept variable name=start:stop:num (repeatable)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (default from config)")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the header and nodes of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := serialization.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, err := autodiff.Restore(h, autodiff.Options{Logger: a.logger, Metrics: a.metrics})
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session:  %s\n", h.SessionID)
			fmt.Fprintf(out, "created:  %s\n", h.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Fprintf(out, "version:  %s\n", h.AdgraphVersion)
			fmt.Fprintf(out, "nodes:    %d\n", s.Len())
			for _, k := range slices.Sorted(maps.Keys(h.Metadata)) {
				fmt.Fprintf(out, "%s: %s\n", k, h.Metadata[k])
			}
			fmt.Fprintln(out)
			return s.Dump(out)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "adgraph %s\n", autodiff.Version)
		},
	}
}

// compile parses the bindings and src into a new session.
func (a *app) compile(src string, vars []string) (*autodiff.Session, *expr.Expr, error) {
	bindings := make([]expr.Binding, 0, len(vars))
	for _, v := range vars {
		b, err := expr.ParseBinding(v)
		if err != nil {
			return nil, nil, err
		}
		bindings = append(bindings, b)
	}

	s, err := a.newSession()
	if err != nil {
		return nil, nil, err
	}
	e, err := expr.Parse(s, src, bindings)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, e, nil
}

// gradOf returns ∂f/∂x, which is 0 when f does not depend on x.
func gradOf(f, x autodiff.Var) (float64, error) {
	if !f.DependsOn(x) {
		return 0, nil
	}
	return x.Grad()
}

func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
