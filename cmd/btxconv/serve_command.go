package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"btxconv/internal/app"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr := strings.TrimSpace(addrFlag); addr != "" {
				cfg.Server.Addr = addr
			}

			logger := ctx.logger(cmd.OutOrStdout())
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.Serve(signalCtx)
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address, overrides server.addr")
	return cmd
}
