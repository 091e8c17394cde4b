package repository

import (
	"context"
	"time"
)

// PageFetcher defines the contract for retrieving fully rendered page content.
// It is the only component allowed to perform network or rendering side effects.
type PageFetcher interface {
	// Fetch loads url, blocks until readinessMarker (a CSS selector) is present or
	// timeout elapses, and returns the page HTML. Failures wrap ErrFetchTimeout or
	// ErrNavigationFailed.
	Fetch(ctx context.Context, url, readinessMarker string, timeout time.Duration) (string, error)
}
