package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ocptv/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	LogJSON bool
	Config  string

	// Settings is loaded from Config before any command runs.
	Settings Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ocptv CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ocptv",
		Short: "OCP Test & Validation artifact tools",
		Long: `Tools for OCP Test & Validation diagnostic output streams.

Run scenarios through the emitter, check streams produced by any tool,
and inspect streams archived in SQLite.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Config != "" {
				cfg, err := LoadConfig(opts.Config)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				opts.Settings = *cfg
			}

			logger, err := opts.Logger(cmd.ErrOrStderr())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create logger", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithLogger(ctx, logger))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "write logs as JSON")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Logger builds the diagnostic logger for a command. Logs always go to
// stderr so they never mix with a stream written to stdout. The root
// command stores it in the command context; subcommands read it back with
// logging.Ctx.
func (o *RootOptions) Logger(stderr io.Writer) (logging.Logger, error) {
	level := logging.LevelFromString(o.Settings.LogLevel)
	if o.Settings.LogLevel == "" {
		level = logging.LevelWarn
	}
	if o.Verbose {
		level = logging.LevelDebug
	}
	if o.LogJSON {
		z, err := logging.NewZapJSON(level)
		if err != nil {
			return nil, fmt.Errorf("create JSON logger: %w", err)
		}
		return z, nil
	}
	return logging.NewWithWriter(stderr, level), nil
}
