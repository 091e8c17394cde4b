package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHousekeepCmd(root *rootOptions) *cobra.Command {
	var staleAfter time.Duration
	cmd := &cobra.Command{
		Use:   "housekeep",
		Short: "Mark records not verified within --stale-after as inactive",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.inventoryManager().Housekeep(cmd.Context(), staleAfter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d records inactive\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "age of the last verification after which a record is stale (e.g. 720h)")
	_ = cmd.MarkFlagRequired("stale-after")
	return cmd
}
