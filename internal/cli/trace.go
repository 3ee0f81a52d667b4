package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/ocptv/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Stream   string
	Step     string // optional - restrict to one step
}

// TraceEvent is one archived artifact in a timeline.
type TraceEvent struct {
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	StepID    string `json:"step_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// TraceRun is one indexed test run.
type TraceRun struct {
	Name      string  `json:"name"`
	Version   string  `json:"version"`
	DutInfoID string  `json:"dut_info_id"`
	StartSeq  uint64  `json:"start_seq"`
	EndSeq    *uint64 `json:"end_seq,omitempty"`
	Status    string  `json:"status,omitempty"`
	Result    string  `json:"result,omitempty"`
}

// TraceResult holds the trace of one stream or step.
type TraceResult struct {
	Stream   string         `json:"stream"`
	Step     string         `json:"step,omitempty"`
	Runs     []TraceRun     `json:"runs"`
	Timeline []TraceEvent   `json:"timeline"`
	Kinds    map[string]int `json:"kinds"`
}

// StreamListing is the trace output when no stream is selected.
type StreamListing struct {
	Streams []StreamEntry `json:"streams"`
}

type StreamEntry struct {
	Name      string `json:"name"`
	Artifacts int    `json:"artifacts"`
	Runs      int    `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect archived streams",
		Long: `Inspect streams archived in SQLite.

Without --stream, lists every archived stream. With --stream, shows its
runs with their outcome, the artifact timeline and counts per kind. With
--step, the timeline is restricted to one step.

Examples:
  ocptv trace --db ./ocptv.db
  ocptv trace --db ./ocptv.db --stream fans
  ocptv trace --db ./ocptv.db --stream fans --step step0 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: config db)")
	cmd.Flags().StringVar(&opts.Stream, "stream", "", "stream to trace")
	cmd.Flags().StringVar(&opts.Step, "step", "", "restrict the timeline to one step id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Step != "" && opts.Stream == "" {
		return NewExitError(ExitCommandError, "--step requires --stream")
	}

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Stream == "" {
		return listStreams(ctx, st, formatter)
	}

	result, err := buildTrace(ctx, st, opts.Stream, opts.Step)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stream", err)
	}
	if len(result.Timeline) == 0 {
		what := fmt.Sprintf("stream %q", opts.Stream)
		if opts.Step != "" {
			what = fmt.Sprintf("step %q in stream %q", opts.Step, opts.Stream)
		}
		if err := formatter.Error(ErrCodeNotFound, what+" not found", nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, what+" not found")
	}

	formatter.VerboseLog("%d runs, %d artifacts", len(result.Runs), len(result.Timeline))
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

func listStreams(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	summaries, err := st.ListStreams(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list streams", err)
	}

	listing := StreamListing{Streams: make([]StreamEntry, len(summaries))}
	for i, s := range summaries {
		listing.Streams[i] = StreamEntry{Name: s.Name, Artifacts: s.Artifacts, Runs: s.Runs}
	}

	if formatter.Format == "json" {
		return formatter.Success(listing)
	}
	w := formatter.Writer
	if len(listing.Streams) == 0 {
		fmt.Fprintln(w, "No streams archived.")
		return nil
	}
	for _, s := range listing.Streams {
		printer.Fprintf(w, "%s: %d artifacts, %d runs\n", s.Name, s.Artifacts, s.Runs)
	}
	return nil
}

func buildTrace(ctx context.Context, st *store.Store, stream, step string) (TraceResult, error) {
	result := TraceResult{
		Stream:   stream,
		Step:     step,
		Runs:     []TraceRun{},
		Timeline: []TraceEvent{},
		Kinds:    map[string]int{},
	}

	runs, err := st.ListRuns(ctx, stream)
	if err != nil {
		return result, err
	}
	for _, r := range runs {
		result.Runs = append(result.Runs, TraceRun{
			Name:      r.Name,
			Version:   r.Version,
			DutInfoID: r.DutInfoID,
			StartSeq:  r.StartSeq,
			EndSeq:    r.EndSeq,
			Status:    r.Status,
			Result:    r.Result,
		})
	}

	var artifacts []store.Artifact
	if step != "" {
		artifacts, err = st.ReadStep(ctx, stream, step)
	} else {
		artifacts, err = st.ReadArtifacts(ctx, stream)
	}
	if err != nil {
		return result, err
	}
	for _, a := range artifacts {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:       a.Seq,
			Kind:      a.Kind,
			StepID:    a.StepID,
			Timestamp: a.Timestamp,
		})
		result.Kinds[a.Kind]++
	}
	return result, nil
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Stream: %s\n", result.Stream)
	for _, r := range result.Runs {
		outcome := "open"
		if r.EndSeq != nil {
			outcome = fmt.Sprintf("%s / %s", humanize(r.Status), humanize(r.Result))
		}
		fmt.Fprintf(w, "  Run %s %s (DUT %s): %s\n", r.Name, r.Version, r.DutInfoID, outcome)
	}
	fmt.Fprintln(w)

	if result.Step != "" || verbose {
		fmt.Fprintln(w, "Timeline:")
		for _, e := range result.Timeline {
			step := e.StepID
			if step == "" {
				step = "-"
			}
			fmt.Fprintf(w, "  [%d] %-8s %s %s\n", e.Seq, step, e.Kind, e.Timestamp)
		}
		fmt.Fprintln(w)
	}

	kinds := make([]string, 0, len(result.Kinds))
	for k := range result.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	printer.Fprintf(w, "Artifacts: %d\n", len(result.Timeline))
	for _, k := range kinds {
		printer.Fprintf(w, "  %s: %d\n", k, result.Kinds[k])
	}
}
