package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newImportCmd(root *rootFlags) *cobra.Command {
	var brandID, loopID int64

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append the rows of a CSV file to a loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			app, err := newApplication(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.loops.ImportCSV(cmd.Context(), brandID, loopID, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d items, skipped %d rows\n", res.Imported, res.Skipped)
			return nil
		},
	}

	cmd.Flags().Int64Var(&brandID, "brand", 0, "Brand that owns the loop")
	cmd.Flags().Int64Var(&loopID, "loop", 0, "Loop to append to")
	_ = cmd.MarkFlagRequired("brand")
	_ = cmd.MarkFlagRequired("loop")
	return cmd
}
