package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"btxconv/internal/app"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var maxAgeFlag time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale workspaces and never-downloaded outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			maxAge := cfg.WorkspaceMaxAge()
			if cmd.Flags().Changed("max-age") {
				maxAge = maxAgeFlag
			}
			if maxAge <= 0 {
				return errors.New("max age must be positive")
			}

			a, err := app.New(cfg, ctx.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			result, err := a.Service.Sweep(maxAge)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Skipped {
				fmt.Fprintln(out, "Another sweep is running; nothing removed")
				return nil
			}
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "Nothing to sweep")
				return nil
			}

			rows := make([][]string, 0, len(result.Removed)+len(result.Errors))
			for _, path := range result.Removed {
				rows = append(rows, []string{path, "removed"})
			}
			for _, failed := range result.Errors {
				rows = append(rows, []string{failed.Path, failed.Error.Error()})
			}
			fmt.Fprintln(out, renderTable([]string{"Path", "Result"}, rows, nil))
			fmt.Fprintf(out, "Removed %d entries older than %s\n", len(result.Removed), maxAge)
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAgeFlag, "max-age", 0, "Remove entries older than this (default from config)")
	return cmd
}
