package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rxstore/internal/harness"
)

// ScenarioReport is the output of the scenario command.
type ScenarioReport struct {
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Errors []string             `json:"errors,omitempty"`
	Trace  []harness.TraceEvent `json:"trace"`
	State  map[string]any       `json:"final_state"`
}

func (r ScenarioReport) String() string {
	var b strings.Builder
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s %s\n", status, r.Name)
	for _, ev := range r.Trace {
		fmt.Fprintf(&b, "  %3d %-8s %s", ev.Seq, ev.Flow, ev.Action)
		if ev.Payload != nil {
			fmt.Fprintf(&b, " %v", ev.Payload)
		}
		b.WriteByte('\n')
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  error: %s\n", e)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario <file>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario file against a fresh store and print every
delivered action with its sequence number and flow token.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (unreadable or invalid scenario file)

Examples:
  rxstore scenario ./testdata/scenarios/counter_basic.yaml
  rxstore scenario ./testdata/scenarios/todos_load_and_add.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runScenarioFile(cmd *cobra.Command, opts *RootOptions, path string) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	result, err := harness.Run(scenario, harnessOptions(cmd, opts)...)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run scenario %s", scenario.Name), err)
	}

	report := ScenarioReport{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Errors: result.Errors,
		Trace:  result.Trace,
		State:  result.State,
	}
	if err := newFormatter(cmd, opts).Success(report); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// harnessOptions routes store logs to stderr under --verbose.
func harnessOptions(cmd *cobra.Command, opts *RootOptions) []harness.Option {
	if !opts.Verbose {
		return nil
	}
	return []harness.Option{harness.WithLogger(opts.logger(cmd.ErrOrStderr()))}
}
