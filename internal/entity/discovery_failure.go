package entity

import "time"

// DiscoveryFailure mirrors the `discovery_failures` table schema.
type DiscoveryFailure struct {
	SiteName      string
	ListingURL    string
	FailureReason string
	AttemptCount  int
	LastAttemptAt time.Time
}
