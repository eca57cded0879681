package main

import (
	"fmt"
	"os"

	"github.com/saqibullah/spam-filter-gateway/config"
	"github.com/saqibullah/spam-filter-gateway/logging"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gateway",
		Short:         "HTTP gateway in front of the ML prediction API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := cmd.Flags().GetString(config.FlagEnvFile)
			if err != nil {
				return err
			}
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}

			v := config.New()
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
			if err != nil {
				return &config.Error{Key: config.KeyLogLevel, Err: err}
			}
			return run(cmd.Context(), cfg, log)
		},
	}
	config.RegisterFlags(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return cmd
}
