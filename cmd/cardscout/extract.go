package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/user/cardscout/internal/report"
	"github.com/user/cardscout/internal/usecase"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var opts usecase.ExtractionOptions
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract attributes from product pages in the inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.Site != "" {
				if _, err := a.selectSites(opts.Site); err != nil {
					return err
				}
			}
			if opts.Pending && a.queue == nil {
				return errors.New("--pending needs REDIS_ADDR to be configured")
			}

			result, err := a.extractor().Run(cmd.Context(), opts)
			if result != nil {
				report.RenderExtraction(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Site, "site", "", "only extract records of the named site")
	cmd.Flags().BoolVar(&opts.Pending, "pending", false, "drain the queue of newly discovered URLs")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of pages to fetch (0 means no limit)")
	return cmd
}
