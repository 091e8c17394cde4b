// Package report renders run summaries and inventory listings for humans.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/usecase"
)

const timeLayout = "2006-01-02 15:04"

// RenderRunSummary writes one row per site plus a totals footer.
func RenderRunSummary(w io.Writer, summary entity.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Discovery run " + summary.RunID)

	t.AppendHeader(table.Row{"Site", "Found", "New", "Reverified", "Duration", "Result"})
	var found, fresh, reverified int
	for _, s := range summary.Sites {
		result := "ok"
		switch {
		case s.Error != "":
			result = s.Error
		case s.Warning != "":
			result = "ok (" + s.Warning + ")"
		}
		t.AppendRow(table.Row{s.Site, s.URLsFound, s.URLsNew, s.URLsReverified, s.Duration.Round(time.Millisecond), result})
		found += s.URLsFound
		fresh += s.URLsNew
		reverified += s.URLsReverified
	}
	t.AppendFooter(table.Row{"Total", found, fresh, reverified, summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
		formatSucceeded(summary)})
	t.Render()
}

func formatSucceeded(summary entity.RunSummary) string {
	return fmt.Sprintf("%d/%d succeeded", summary.Succeeded(), len(summary.Sites))
}

// RenderInventory writes the given records as a table.
func RenderInventory(w io.Writer, records []*entity.InventoryRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Site", "URL", "Card", "First discovered", "Last verified", "Active"})
	for _, rec := range records {
		card := ""
		if rec.Attributes != nil {
			card = rec.Attributes.CardName
		}
		t.AppendRow(table.Row{
			rec.SiteName,
			rec.URL,
			card,
			rec.FirstDiscoveredAt.Format(timeLayout),
			rec.LastVerifiedAt.Format(timeLayout),
			rec.IsActive,
		})
	}
	t.AppendFooter(table.Row{"", "Records", len(records)})
	t.Render()
}

// RenderExtraction writes the outcome of an extraction batch.
func RenderExtraction(w io.Writer, r *usecase.ExtractionReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Attribute extraction")

	t.AppendHeader(table.Row{"Attempted", "Extracted", "Skipped", "Failed"})
	t.AppendRow(table.Row{r.Attempted, r.Extracted, r.Skipped, len(r.Failures)})
	t.Render()

	if len(r.Failures) == 0 {
		return
	}
	f := table.NewWriter()
	f.SetOutputMirror(w)
	f.SetStyle(table.StyleLight)
	f.AppendHeader(table.Row{"Site", "URL", "Reason"})
	for _, fail := range r.Failures {
		f.AppendRow(table.Row{fail.Site, fail.URL, fail.Reason})
	}
	f.Render()
}

// RenderFailures writes the recorded discovery failures.
func RenderFailures(w io.Writer, failures []*entity.DiscoveryFailure) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Site", "Attempts", "Last attempt", "Reason"})
	for _, f := range failures {
		t.AppendRow(table.Row{f.SiteName, f.AttemptCount, f.LastAttemptAt.Format(timeLayout), f.FailureReason})
	}
	t.Render()
}

// RenderSites writes the configured sites.
func RenderSites(w io.Writer, sites []*discovery.Site) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Listing URL", "Fetcher", "Strategy", "Include", "Exclude", "Attributes"})
	for _, s := range sites {
		def := s.Definition
		strategy := string(def.Strategy.Kind)
		if strategy == "" {
			strategy = string(entity.StrategyAnchors)
		}
		t.AppendRow(table.Row{
			def.Name,
			def.ListingURL,
			def.Fetcher,
			strategy,
			len(def.Include) + len(def.FallbackInclude),
			len(def.Exclude),
			len(def.Attributes.Fields),
		})
	}
	t.Render()
}
