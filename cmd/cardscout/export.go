package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/report"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		out    string
		site   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the inventory as a table or an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "xlsx" {
				return fmt.Errorf("unknown format %q, want table or xlsx", format)
			}

			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.inventoryManager()
			var records []*entity.InventoryRecord
			if site != "" {
				records, err = m.ListBySite(cmd.Context(), site)
			} else {
				records, err = m.ListActive(cmd.Context())
			}
			if err != nil {
				return err
			}

			if format == "table" {
				report.RenderInventory(cmd.OutOrStdout(), records)
				return nil
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := report.WriteInventoryXLSX(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or xlsx")
	cmd.Flags().StringVar(&out, "out", "inventory.xlsx", "output file for xlsx")
	cmd.Flags().StringVar(&site, "site", "", "export every record of the named site, inactive ones included")
	return cmd
}
