package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/user/cardscout/internal/entity"
)

const inventorySheet = "Inventory"

var inventoryColumns = []string{
	"site_name", "url", "card_name", "annual_fee", "minimum_salary",
	"first_discovered_at", "last_verified_at", "is_active",
}

// WriteInventoryXLSX writes records to an xlsx workbook with one row per record.
// Attributes outside the fixed columns are appended as extra columns, sorted by name.
func WriteInventoryXLSX(w io.Writer, records []*entity.InventoryRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return err
	}

	extras := extraColumns(records)
	headers := append(append([]string(nil), inventoryColumns...), extras...)
	if err := setRow(f, 1, toAny(headers)); err != nil {
		return err
	}

	for i, rec := range records {
		row := []any{
			rec.SiteName,
			rec.URL,
			"", "", "",
			rec.FirstDiscoveredAt.UTC().Format("2006-01-02T15:04:05Z"),
			rec.LastVerifiedAt.UTC().Format("2006-01-02T15:04:05Z"),
			rec.IsActive,
		}
		if a := rec.Attributes; a != nil {
			row[2], row[3], row[4] = a.CardName, a.AnnualFee, a.MinimumSalary
		}
		for _, name := range extras {
			v := ""
			if rec.Attributes != nil {
				v = rec.Attributes.Extra[name]
			}
			row = append(row, v)
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(inventorySheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(inventorySheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func extraColumns(records []*entity.InventoryRecord) []string {
	seen := map[string]bool{}
	var names []string
	for _, rec := range records {
		if rec.Attributes == nil {
			continue
		}
		for name := range rec.Attributes.Extra {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
