package main

import (
	"github.com/spf13/cobra"

	"github.com/user/cardscout/internal/report"
)

func newDiscoverCmd(root *rootOptions) *cobra.Command {
	var site string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one discovery pass over the configured sites",
		Long: `Fetches every configured listing page, classifies its links and records the
product URLs in the inventory. Exits non-zero only when no site succeeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			sites, err := a.selectSites(site)
			if err != nil {
				return err
			}

			summary := a.discoverer().RunAll(cmd.Context(), "", sites)
			report.RenderRunSummary(cmd.OutOrStdout(), summary)
			if summary.ExitCode() != 0 {
				return errNoSiteSucceeded
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "only discover the named site")
	return cmd
}
