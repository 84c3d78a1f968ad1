package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <file>...",
		Short: "List the header of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := rootOpts.writer(cmd)
			if err != nil {
				return err
			}
			engine := rootOpts.engine(cmd)

			for _, path := range args {
				text, err := rootOpts.readInput(cmd, path)
				if err != nil {
					return err
				}
				cols, err := engine.Columns(text)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := w.WriteColumns(path, cols); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
