package entity

import "time"

// SiteSummary reports the outcome of one site's discovery pass.
type SiteSummary struct {
	Site           string        `json:"site"`
	URLsFound      int           `json:"urls_found"`
	URLsNew        int           `json:"urls_new"`
	URLsReverified int           `json:"urls_reverified"`
	Error          string        `json:"error,omitempty"` // empty means none
	Warning        string        `json:"warning,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// OK reports whether the site pass succeeded.
func (s SiteSummary) OK() bool {
	return s.Error == ""
}

// RunSummary reports the outcome of a discovery run over all configured sites.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Sites      []SiteSummary `json:"sites"`
}

// Succeeded returns the number of sites whose pass succeeded.
func (r RunSummary) Succeeded() int {
	n := 0
	for _, s := range r.Sites {
		if s.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of sites whose pass failed.
func (r RunSummary) Failed() int {
	return len(r.Sites) - r.Succeeded()
}

// ExitCode is non-zero only when no site succeeded.
func (r RunSummary) ExitCode() int {
	if r.Succeeded() == 0 {
		return 1
	}
	return 0
}
