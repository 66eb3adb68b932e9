package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wbrown/janus-traversal/traversal/config"
	"github.com/wbrown/janus-traversal/traversal/parser"
)

type planFlags struct {
	file     string
	strategy string
	explain  bool
	infer    bool
	metrics  bool
	timeout  time.Duration
}

func planCmd(flags *globalFlags) *cobra.Command {
	var pf planFlags

	cmd := &cobra.Command{
		Use:   "plan [pattern]",
		Short: "Plan a pattern and print the fragment order",
		Long: `Plan a pattern given as an argument, read from --file, or read from
stdin when neither is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readPattern(args, pf.file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			a, err := openApp(flags, cmd.ErrOrStderr(), pf.apply)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if pf.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, pf.timeout)
				defer cancel()
			}
			return a.planAndPrint(ctx, cmd.OutOrStdout(), input, pf.explain)
		},
	}

	cmd.Flags().StringVarP(&pf.file, "file", "f", "", "Read the pattern from a file")
	cmd.Flags().StringVar(&pf.strategy, "strategy", "", "Override the planning strategy (greedy, optimal)")
	cmd.Flags().BoolVar(&pf.explain, "explain", false, "Print the plan as a table with costs")
	cmd.Flags().BoolVar(&pf.infer, "infer", false, "Infer relation types from role players")
	cmd.Flags().BoolVar(&pf.metrics, "metrics", false, "Print planning metrics after the plan")
	cmd.Flags().DurationVar(&pf.timeout, "timeout", 0, "Planning deadline (0 = none)")
	return cmd
}

// apply overrides the loaded configuration with command-line flags
func (pf planFlags) apply(cfg *config.Config) {
	if pf.strategy != "" {
		cfg.Planner.Strategy = pf.strategy
	}
	if pf.infer {
		cfg.Planner.InferRelationTypes = true
	}
	if pf.metrics {
		cfg.Metrics.Enabled = true
	}
}

func readPattern(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", fmt.Errorf("give the pattern as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read pattern: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read pattern: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("no pattern given")
	}
	return string(data), nil
}

// planAndPrint parses, plans and prints one pattern
func (a *app) planAndPrint(ctx context.Context, w io.Writer, input string, explain bool) error {
	pat, err := parser.ParsePattern(input)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	start := time.Now()
	t, err := a.planner.CreateTraversal(ctx, pat)
	if err != nil {
		return fmt.Errorf("planning error: %w", err)
	}
	elapsed := time.Since(start)

	if explain {
		if err := t.Explain(w); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, t.String())
	}
	fmt.Fprintf(w, "_%d fragments in %d plans (%.3fms)_\n",
		t.Fragments(), len(t.Plans), float64(elapsed.Microseconds())/1000.0)

	if a.metrics != nil {
		fmt.Fprintln(w)
		return a.metrics.WriteText(w)
	}
	return nil
}
