package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type crosstabOptions struct {
	rows string
	cols string
}

// NewCrosstabCommand creates the crosstab command.
func NewCrosstabCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &crosstabOptions{}

	cmd := &cobra.Command{
		Use:   "crosstab <file> --rows <column> [--cols <column>]",
		Short: "Count values of one column, or pairs of values of two columns",
		Long: `Count how often each value of the --rows column occurs.

With --cols the result is a contingency table of (row value, column value)
pairs with row, column and grand totals. Values keep the order in which they
first appear in the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := rootOpts.writer(cmd)
			if err != nil {
				return err
			}
			text, err := rootOpts.readInput(cmd, args[0])
			if err != nil {
				return err
			}

			res, err := rootOpts.engine(cmd).Crosstab(cmd.Context(), text, opts.rows, opts.cols)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return w.WriteCrosstab(args[0], res)
		},
	}

	cmd.Flags().StringVarP(&opts.rows, "rows", "r", "", "row variable (required)")
	cmd.Flags().StringVarP(&opts.cols, "cols", "c", "", "column variable")
	cmd.MarkFlagRequired("rows")

	return cmd
}
