package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ocptv/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Stream   string
	Check    bool
}

// ReplayResult is the JSON form of a replayed stream.
type ReplayResult struct {
	Stream    string            `json:"stream"`
	Artifacts []json.RawMessage `json:"artifacts"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print an archived stream",
		Long: `Print an archived stream as newline-delimited JSON, in sequence order,
exactly as it was emitted.

With --check the replayed stream is also run through the stream checker;
problems are reported on stderr.

Exit codes:
  0 - Stream replayed (and valid, with --check)
  1 - Stream has problems (with --check)
  2 - Command error (database not found, unknown stream, etc.)

Examples:
  ocptv replay --db ./ocptv.db --stream fans
  ocptv replay --db ./ocptv.db --stream fans --check
  ocptv replay --db ./ocptv.db --stream fans --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: config db)")
	cmd.Flags().StringVar(&opts.Stream, "stream", "", "stream to replay (required)")
	_ = cmd.MarkFlagRequired("stream")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "also check the replayed stream")

	return cmd
}

// openStore opens the archive named by the --db flag or the config file.
func openStore(opts *RootOptions, flag string) (*store.Store, error) {
	db := opts.database(flag)
	if db == "" {
		return nil, NewExitError(ExitCommandError, "no database: use --db or set db in the config file")
	}
	st, err := store.Open(db)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	artifacts, err := st.ReadArtifacts(ctx, opts.Stream)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stream", err)
	}
	if len(artifacts) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("stream %q not found or empty", opts.Stream))
	}

	lines := make([][]byte, len(artifacts))
	for i, a := range artifacts {
		lines[i] = []byte(a.Line)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("replaying %d artifacts from stream %q", len(lines), opts.Stream)

	if opts.Format == "json" {
		result := ReplayResult{Stream: opts.Stream, Artifacts: make([]json.RawMessage, len(lines))}
		for i, l := range lines {
			result.Artifacts[i] = json.RawMessage(l)
		}
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, l := range lines {
			if _, err := fmt.Fprintf(formatter.Writer, "%s\n", l); err != nil {
				return err
			}
		}
	}

	if !opts.Check {
		return nil
	}
	checker, err := newChecker(cmd, true)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create checker", err)
	}
	report := checker.CheckLines(lines)
	if report.OK() {
		return nil
	}
	for _, p := range report.Problems {
		fmt.Fprintf(formatter.GetErrWriter(), "%s\n", p.Error())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d problem(s) found", len(report.Problems)))
}
