package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/cardscout/internal/report"
	"github.com/user/cardscout/internal/repository"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest discovery run and sites whose last pass failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.inventoryManager()
			w := cmd.OutOrStdout()

			latest, err := m.LatestRun(cmd.Context())
			switch {
			case errors.Is(err, repository.ErrNotFound):
				fmt.Fprintln(w, "no discovery run recorded")
			case err != nil:
				return err
			default:
				report.RenderRunSummary(w, *latest)
			}

			failures, err := m.Failures(cmd.Context())
			if err != nil {
				return err
			}
			if len(failures) > 0 {
				report.RenderFailures(w, failures)
			}
			return nil
		},
	}
}
