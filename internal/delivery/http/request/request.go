package request

// StartRunRequest is the optional body of POST /api/discovery/runs.
type StartRunRequest struct {
	// Site restricts the run to one configured site. Empty runs all sites.
	Site string `json:"site"`
}
