package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile   string
	sitesFile string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "cardscout",
		Short:         "Discover and track credit card product pages across bank websites",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "env file with configuration overrides")
	cmd.PersistentFlags().StringVar(&opts.sitesFile, "sites", "", "site definitions file (overrides SITES_FILE)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newDiscoverCmd(opts),
		newExtractCmd(opts),
		newServeCmd(opts),
		newHousekeepCmd(opts),
		newExportCmd(opts),
		newSitesCmd(opts),
		newStatusCmd(opts),
	)
	return cmd
}
