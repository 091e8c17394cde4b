package main

import (
	"github.com/spf13/cobra"

	"github.com/user/cardscout/internal/report"
	"github.com/user/cardscout/pkg/config"
)

func newSitesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "Validate and list the configured sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.envFile)
			if err != nil {
				return err
			}
			path := cfg.SitesFile
			if root.sitesFile != "" {
				path = root.sitesFile
			}
			sites, err := config.LoadSites(path)
			if err != nil {
				return err
			}
			report.RenderSites(cmd.OutOrStdout(), sites)
			return nil
		},
	}
}
