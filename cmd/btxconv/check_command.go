package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"btxconv/internal/infrastructure/pvrtex"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and locate the converter binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			magic, err := cfg.Magic()
			if err != nil {
				return err
			}

			converter := pvrtex.NewConverter(cfg.Converter.Path, cfg.ConverterTimeout(), ctx.logger(cmd.ErrOrStderr()))
			checkErr := converter.Check()
			status := "ok"
			if checkErr != nil {
				status = checkErr.Error()
			}

			rows := [][]string{
				{"Converter", converter.Binary},
				{"Converter status", status},
				{"Timeout", converter.Timeout.String()},
				{"BTX magic", hex.EncodeToString(magic)},
				{"Uploads dir", cfg.Storage.UploadsDir},
				{"Outputs dir", cfg.Storage.OutputsDir},
				{"Isolated outputs", yesNo(cfg.Storage.IsolateOutputs)},
				{"Batch concurrency", fmt.Sprint(cfg.Converter.BatchConcurrency)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, nil))

			if checkErr != nil {
				return fmt.Errorf("converter unavailable: %w", checkErr)
			}
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
