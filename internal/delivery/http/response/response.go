package response

import (
	"time"

	"github.com/user/cardscout/internal/entity"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SiteResponse is a DTO of a configured site.
type SiteResponse struct {
	Name       string             `json:"name"`
	ListingURL string             `json:"listing_url"`
	Fetcher    entity.FetcherKind `json:"fetcher"`
	Strategy   string             `json:"strategy"`
	Extracts   bool               `json:"extracts_attributes"`
}

// InventoryRecordResponse mirrors entity.InventoryRecord.
type InventoryRecordResponse struct {
	URL               string                  `json:"url"`
	SiteName          string                  `json:"site_name"`
	FirstDiscoveredAt time.Time               `json:"first_discovered_at"`
	LastVerifiedAt    time.Time               `json:"last_verified_at"`
	IsActive          bool                    `json:"is_active"`
	Attributes        *entity.AttributeRecord `json:"attributes,omitempty"`
}

type InventoryListResponse struct {
	Site    string                    `json:"site"`
	Count   int                       `json:"count"`
	Records []InventoryRecordResponse `json:"records"`
}

type StartRunResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// RunSummaryResponse is a DTO of the latest run, with durations in milliseconds.
type RunSummaryResponse struct {
	RunID      string                `json:"run_id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	Sites      []SiteSummaryResponse `json:"sites"`
	InProgress string                `json:"in_progress,omitempty"`
}

type SiteSummaryResponse struct {
	Site           string `json:"site"`
	URLsFound      int    `json:"urls_found"`
	URLsNew        int    `json:"urls_new"`
	URLsReverified int    `json:"urls_reverified"`
	Error          string `json:"error,omitempty"`
	Warning        string `json:"warning,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
}

func FromRecord(rec *entity.InventoryRecord) InventoryRecordResponse {
	return InventoryRecordResponse{
		URL:               rec.URL,
		SiteName:          rec.SiteName,
		FirstDiscoveredAt: rec.FirstDiscoveredAt,
		LastVerifiedAt:    rec.LastVerifiedAt,
		IsActive:          rec.IsActive,
		Attributes:        rec.Attributes,
	}
}

func FromSummary(s *entity.RunSummary) RunSummaryResponse {
	resp := RunSummaryResponse{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Succeeded:  s.Succeeded(),
		Failed:     s.Failed(),
		Sites:      make([]SiteSummaryResponse, 0, len(s.Sites)),
	}
	for _, site := range s.Sites {
		resp.Sites = append(resp.Sites, SiteSummaryResponse{
			Site:           site.Site,
			URLsFound:      site.URLsFound,
			URLsNew:        site.URLsNew,
			URLsReverified: site.URLsReverified,
			Error:          site.Error,
			Warning:        site.Warning,
			DurationMS:     site.Duration.Milliseconds(),
		})
	}
	return resp
}
