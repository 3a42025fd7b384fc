package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"btxconv/internal/domain/texture"
)

func newStripCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "strip INPUT [OUTPUT]",
		Short: "Remove the BTX header, leaving the KTX payload",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			framer, err := ctx.framer()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			if !framer.HasMagic(data) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %s does not start with the BTX magic\n", args[0])
			}
			inner, err := framer.Strip(data)
			if err != nil {
				return err
			}
			return writeFramed(cmd, outputArg(args, texture.ExtKTX), inner)
		},
	}
}

func newWrapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "wrap INPUT [OUTPUT]",
		Short: "Prefix a KTX file with the BTX header",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			framer, err := ctx.framer()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return writeFramed(cmd, outputArg(args, texture.ExtBTX), framer.Wrap(data))
		},
	}
}

func outputArg(args []string, ext string) string {
	if len(args) > 1 {
		return args[1]
	}
	in := args[0]
	return filepath.Join(filepath.Dir(in), texture.BaseName(filepath.Base(in))+ext)
}

func writeFramed(cmd *cobra.Command, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", path, humanize.IBytes(uint64(len(data))))
	return nil
}
