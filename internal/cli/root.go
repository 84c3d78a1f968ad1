// Package cli implements the listcutter command line: the same analyses as
// the HTTP API, run over local files and written as CSV, Markdown or JSON.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/listcutter/internal/core"
	"github.com/JonMunkholm/listcutter/internal/logging"
	"github.com/JonMunkholm/listcutter/internal/report"
	"github.com/JonMunkholm/listcutter/internal/source"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string
	LogLevel string
	Lenient  bool

	MaxBytes        int64
	MaxRows         int
	Timeout         time.Duration
	MaxUniqueValues int
	SampleRows      int
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	defaults := core.DefaultLimits()

	cmd := &cobra.Command{
		Use:   "listcutter",
		Short: "Slice, count and profile CSV files",
		Long: `listcutter analyses CSV files: list their columns, cross-tabulate two
columns, detect column types and filter rows.

Results go to stdout in the chosen format; logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := report.ParseFormat(opts.Format); err != nil {
				return err
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.Format, "format", "f", "csv", "output format (csv|markdown|json)")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	flags.BoolVar(&opts.Lenient, "lenient", false, "treat unknown operators and bad patterns as matching nothing")
	flags.Int64Var(&opts.MaxBytes, "max-bytes", defaults.MaxBytes, "maximum input size in bytes")
	flags.IntVar(&opts.MaxRows, "max-rows", defaults.MaxRows, "maximum data rows per file")
	flags.DurationVar(&opts.Timeout, "timeout", defaults.Timeout, "maximum processing time per file")
	flags.IntVar(&opts.MaxUniqueValues, "max-unique", defaults.MaxUniqueValues, "maximum distinct values per crosstab axis")
	flags.IntVar(&opts.SampleRows, "sample-rows", defaults.SampleRows, "rows sampled by type detection")

	cmd.AddCommand(NewColumnsCommand(opts))
	cmd.AddCommand(NewCrosstabCommand(opts))
	cmd.AddCommand(NewDetectCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", describe(err))
		return 1
	}
	return 0
}

// describe turns engine errors into their user message followed by the
// technical cause, and leaves flag and usage errors as they are.
func describe(err error) string {
	if !core.IsUserFacing(err) {
		return err.Error()
	}
	userErr := core.NewUserError(err)
	msg := core.FormatUserError(userErr)
	if cause := userErr.Technical.Error(); cause != userErr.Error() {
		msg += "\n  cause: " + cause
	}
	return msg
}

func (o *RootOptions) limits() core.Limits {
	return core.Limits{
		MaxBytes:        o.MaxBytes,
		MaxRows:         o.MaxRows,
		Timeout:         o.Timeout,
		MaxUniqueValues: o.MaxUniqueValues,
		SampleRows:      o.SampleRows,
	}
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.LogLevel, "text")
}

// engine builds the engine shared by every file of one command.
func (o *RootOptions) engine(cmd *cobra.Command) *core.Engine {
	opts := []core.Option{core.WithLogger(o.logger(cmd))}
	if o.Lenient {
		opts = append(opts, core.WithLenientFilters())
	}
	return core.NewEngine(o.limits(), opts...)
}

func (o *RootOptions) writer(cmd *cobra.Command) (report.Writer, error) {
	format, err := report.ParseFormat(o.Format)
	if err != nil {
		return nil, err
	}
	return report.NewWriter(format, cmd.OutOrStdout())
}

// readInput reads path, or stdin for "-", under the byte budget.
func (o *RootOptions) readInput(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}

	text, err := source.ReadAll(r, o.MaxBytes)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}
