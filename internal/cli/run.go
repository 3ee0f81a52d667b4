package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ocptv/internal/harness"
	"github.com/roach88/ocptv/internal/logging"
	"github.com/roach88/ocptv/internal/store"
	"github.com/roach88/ocptv/internal/validate"
	"github.com/roach88/ocptv/output"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Output   string
	Database string
	Stream   string
	Epoch    bool
}

// RunSummary is the result of one scenario run.
type RunSummary struct {
	Scenario  string             `json:"scenario"`
	Artifacts int                `json:"artifacts"`
	Pass      bool               `json:"pass"`
	Stream    string             `json:"stream,omitempty"`
	Error     string             `json:"error,omitempty"`
	Panic     string             `json:"panic,omitempty"`
	Problems  []validate.Problem `json:"problems"`
	Errors    []string           `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Emit the artifact stream of a scenario",
		Long: `Drive a YAML scenario through the emitter and write the resulting
artifact stream.

The stream goes to stdout unless --output names a file. With --db every
artifact is also archived in SQLite under --stream (default: the scenario
name). The run summary goes to stderr when the stream is on stdout.

Exit codes:
  0 - Scenario expectations held
  1 - Scenario expectations failed
  2 - Command error (invalid scenario, unwritable output, etc.)

Examples:
  ocptv run scenarios/fans.yaml
  ocptv run scenarios/fans.yaml --output fans.ndjson --db ./ocptv.db
  ocptv run scenarios/fans.yaml --epoch --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", `stream destination: "stdout" or a file path`)
	cmd.Flags().StringVar(&opts.Database, "db", "", "also archive the stream in this SQLite database")
	cmd.Flags().StringVar(&opts.Stream, "stream", "", "archive stream name (default: scenario name)")
	cmd.Flags().BoolVar(&opts.Epoch, "epoch", false, "pin every timestamp to the Unix epoch")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.Ctx(ctx)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	dest := opts.Output
	if dest == "" {
		dest = opts.Settings.Output
	}
	var (
		sink     output.Writer
		summaryW io.Writer
	)
	if dest == "" || dest == "stdout" {
		sink = output.NewLineWriter(cmd.OutOrStdout())
		summaryW = cmd.ErrOrStderr()
	} else {
		fw, err := output.NewFileWriter(dest)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open output", err)
		}
		defer func() {
			if closeErr := fw.Close(); closeErr != nil {
				logger.Error("error closing output", "path", dest, "error", closeErr)
			}
		}()
		sink = fw
		summaryW = cmd.OutOrStdout()
	}

	summary := RunSummary{Scenario: scenario.Name}
	if db := opts.database(opts.Database); db != "" {
		st, err := store.Open(db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		name := opts.Stream
		if name == "" {
			name = scenario.Name
		}
		sw, err := st.Stream(ctx, name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open archive stream", err)
		}
		sink = output.NewMultiWriter(sink, sw)
		summary.Stream = sw.Name()
		if sw.Name() != name {
			logger.Warn("stream already archived, using a new name", "stream", name, "new", sw.Name())
		}
		logger.Info("archiving stream", "db", db, "stream", sw.Name())
	}

	var clock output.Clock = output.SystemClock{}
	if opts.Epoch {
		clock = output.ClockFunc(func() time.Time { return time.Unix(0, 0).UTC() })
	}

	result, err := harness.Run(ctx, scenario,
		harness.WithWriter(sink),
		harness.WithClock(clock),
		harness.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	logger.Debug("scenario done", "scenario", scenario.Name, "pass", result.Pass)

	summary.Artifacts = len(result.Lines)
	summary.Pass = result.Pass
	summary.Error = result.Error
	summary.Panic = result.Panic
	summary.Problems = result.Report.Problems
	summary.Errors = result.Errors

	if opts.Format == "json" {
		return outputRunJSON(summaryW, summary)
	}
	return outputRunText(summaryW, summary, opts.Verbose)
}

func outputRunJSON(w io.Writer, summary RunSummary) error {
	response := CLIResponse{Status: "ok", Data: summary}
	if !summary.Pass {
		response.Status = "error"
		response.Error = &CLIError{Code: ErrCodeScenario, Message: "scenario expectations failed"}
	}
	if err := writeJSON(w, response); err != nil {
		return err
	}
	if !summary.Pass {
		return NewExitError(ExitFailure, "scenario failed")
	}
	return nil
}

func outputRunText(w io.Writer, summary RunSummary, verbose bool) error {
	status := "✓"
	if !summary.Pass {
		status = "✗"
	}
	printer.Fprintf(w, "%s %s: %d artifacts\n", status, summary.Scenario, summary.Artifacts)

	if summary.Stream != "" && verbose {
		fmt.Fprintf(w, "  Archived as stream %q\n", summary.Stream)
	}
	if summary.Error != "" {
		fmt.Fprintf(w, "  Run error: %s\n", summary.Error)
	}
	if summary.Panic != "" {
		fmt.Fprintf(w, "  Run panicked: %s\n", summary.Panic)
	}
	for _, p := range summary.Problems {
		fmt.Fprintf(w, "  %s\n", p.Error())
	}
	for _, e := range summary.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	if !summary.Pass {
		return NewExitError(ExitFailure, "scenario failed")
	}
	return nil
}
