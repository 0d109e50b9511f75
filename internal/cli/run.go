package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/normstore/internal/harness"
	"github.com/roach88/normstore/internal/ir"
)

// RunResult is the payload of the run command.
type RunResult struct {
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Trace  []harness.TraceEvent `json:"trace"`
	Errors []string             `json:"errors,omitempty"`
	Dump   ir.IRObject          `json:"dump"`
	Hash   string               `json:"hash"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print the final store",
		Long: `Execute a single scenario against a fresh store and print the
resulting snapshot in canonical JSON together with its hash.

Exit codes:
  0 - Scenario passed
  1 - A step expectation or assertion failed
  2 - Scenario could not be loaded or set up

Example:
  normstore run ./scenarios/upsert_nested.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOne(rootOpts, args[0], cmd)
		},
	}
}

func runOne(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	logger := f.Logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		f.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	logger.Debug("running scenario", "name", scenario.Name, "backend", scenario.Backend, "steps", len(scenario.Steps))

	result, err := harness.Run(scenario, harness.WithLogger(logger))
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if opts.Format == "json" {
		if err := f.Success(RunResult{
			Name:   scenario.Name,
			Pass:   result.Pass,
			Trace:  result.Trace,
			Errors: result.Errors,
			Dump:   result.Dump,
			Hash:   result.Hash,
		}); err != nil {
			return err
		}
	} else {
		dump, err := ir.MarshalCanonical(result.Dump)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode snapshot", err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, string(dump))
		fmt.Fprintf(w, "hash: %s\n", result.Hash)
		if result.Pass {
			fmt.Fprintf(w, "✓ %s\n", scenario.Name)
		} else {
			fmt.Fprintf(w, "✗ %s\n  %s\n", scenario.Name, strings.Join(result.Errors, "\n  "))
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}
