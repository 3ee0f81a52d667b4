package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ocptv/internal/logging"
	"github.com/roach88/ocptv/internal/validate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	NoShape bool
}

// ValidationResult holds the checker's verdict on one stream.
type ValidationResult struct {
	Source string `json:"source"`
	Valid  bool   `json:"valid"`
	*validate.Report
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <stream.ndjson|->",
		Short: "Check an artifact stream",
		Long: `Check a newline-delimited artifact stream produced by any tool.

Every line is checked against the artifact schema, then the whole stream is
followed: sequence numbers, timestamps, run and step pairing, step nesting,
leaf containment, measurement series bookkeeping and DUT references.

Use "-" to read from stdin.

Exit codes:
  0 - Stream is valid
  1 - Stream has problems
  2 - Command error (unreadable file, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoShape, "no-shape", false, "skip the per-line schema check")

	return cmd
}

func runValidate(opts *ValidateOptions, source string, cmd *cobra.Command) error {
	var in io.Reader = cmd.InOrStdin()
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open stream", err)
		}
		defer f.Close()
		in = f
	}

	checker, err := newChecker(cmd, !opts.NoShape)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create checker", err)
	}

	report, err := checker.Check(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stream", err)
	}

	result := ValidationResult{Source: source, Valid: report.OK(), Report: report}
	return outputValidation(cmd.OutOrStdout(), opts.Format, result)
}

func newChecker(cmd *cobra.Command, shape bool) (*validate.Checker, error) {
	checkerOpts := []validate.CheckerOption{validate.WithLogger(logging.Ctx(cmd.Context()))}
	if shape {
		v, err := validate.NewShapeValidator()
		if err != nil {
			return nil, err
		}
		checkerOpts = append(checkerOpts, validate.WithShape(v))
	}
	return validate.NewChecker(checkerOpts...), nil
}

func outputValidation(w io.Writer, format string, result ValidationResult) error {
	if format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeProblems,
				Message: fmt.Sprintf("%d problem(s) found", len(result.Problems)),
			}
		}
		if err := writeJSON(w, response); err != nil {
			return err
		}
	} else {
		status := "✓"
		if !result.Valid {
			status = "✗"
		}
		printer.Fprintf(w, "%s %s: %d artifacts, %d runs, %d steps\n",
			status, result.Source, result.Artifacts, result.Runs, result.Steps)
		for _, p := range result.Problems {
			fmt.Fprintf(w, "  %s\n", p.Error())
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d problem(s) found", len(result.Problems)))
	}
	return nil
}
