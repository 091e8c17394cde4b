package repository

import (
	"context"
	"time"

	"github.com/user/cardscout/internal/entity"
)

// ExtractionMarkerRepository remembers which product URLs had their attributes
// extracted recently.
type ExtractionMarkerRepository interface {
	// MarkExtracted marks a URL as extracted with a specific expiry time.
	MarkExtracted(ctx context.Context, url string, expiry time.Duration) error
	// IsExtracted checks if a URL has been extracted recently.
	IsExtracted(ctx context.Context, url string) (bool, error)
}

// SiteLockRepository prevents two discovery passes of the same site running at once.
type SiteLockRepository interface {
	// TryLock acquires the lock for siteName. It reports false when another
	// holder owns it.
	TryLock(ctx context.Context, siteName, owner string, ttl time.Duration) (bool, error)
	// Unlock releases the lock if owner still holds it.
	Unlock(ctx context.Context, siteName, owner string) error
}

// SummaryRepository stores the summary of the most recent discovery run.
type SummaryRepository interface {
	SaveLatest(ctx context.Context, summary *entity.RunSummary) error
	// Latest returns ErrNotFound when no run has been recorded.
	Latest(ctx context.Context) (*entity.RunSummary, error)
}
