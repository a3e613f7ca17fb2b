package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTickCmd(root *rootFlags) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one loop tick and exit, for use from an external scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = parsed
			}

			app, err := newApplication(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			summary, err := app.orchestrator.Run(ctx, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d loops, %d fired, %d failed\n",
				summary.RunID, summary.Loops, summary.Fired, summary.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Tick instant in RFC 3339 (defaults to now)")
	return cmd
}
