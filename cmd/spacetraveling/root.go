package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling"
)

func newRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "spacetraveling",
		Short:         "Blog front-end for a Prismic repository",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "", "path to a YAML config file (default: $CONFIG_PATH or ./local.yaml)")
	cmd.PersistentFlags().String("log-level", "", "override the configured log level")
	cmd.AddCommand(newServeCmd(), newBuildCmd(), newVersionCmd(ver))
	return cmd
}

// loadConfig reads the config named by the persistent flags and builds the
// logger for it.
func loadConfig(cmd *cobra.Command) (spacetraveling.SiteConfig, zerolog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := spacetraveling.LoadConfig(path)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, spacetraveling.NewLogger(cfg.LogLevel, nil), nil
}

func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the spacetraveling version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spacetraveling %s\n", ver)
		},
	}
}
