package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/listcutter/internal/core"
)

type detectOptions struct {
	jobs int
}

// NewDetectCommand creates the detect command.
func NewDetectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <file>...",
		Short: "Infer the type of every column",
		Long: `Infer each column's type (integer, decimal, date, boolean, categorical or
text) from a sample of its rows. Several files are analysed concurrently;
output keeps the order of the arguments.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := rootOpts.writer(cmd)
			if err != nil {
				return err
			}

			profiles, err := detectAll(cmd, rootOpts, args, opts.jobs)
			if err != nil {
				return err
			}
			for i, path := range args {
				if err := w.WriteProfiles(path, profiles[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "files analysed at once")
	return cmd
}

// detectAll profiles every file, at most jobs at a time. The first failure
// cancels the rest.
func detectAll(cmd *cobra.Command, rootOpts *RootOptions, paths []string, jobs int) ([][]core.ColumnProfile, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	engine := rootOpts.engine(cmd)
	results := make([][]core.ColumnProfile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			text, err := rootOpts.readInput(cmd, path)
			if err != nil {
				return err
			}
			profiles, err := engine.DetectTypes(ctx, text)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = profiles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
