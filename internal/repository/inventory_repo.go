package repository

import (
	"context"
	"time"

	"github.com/user/cardscout/internal/entity"
)

// InventoryRepository is the durable record of known product URLs.
type InventoryRepository interface {
	// UpsertDiscovered inserts unseen URLs and reasserts liveness of known ones.
	// Site attribution and first-discovered time are immutable once written;
	// last-verified only ever advances. An empty set is a no-op.
	UpsertDiscovered(ctx context.Context, siteName string, urls []string, ts time.Time) (entity.UpsertResult, error)
	// Get returns the record for url or ErrNotFound.
	Get(ctx context.Context, url string) (*entity.InventoryRecord, error)
	// ListBySite returns every record attributed to siteName, ordered by URL.
	ListBySite(ctx context.Context, siteName string) ([]*entity.InventoryRecord, error)
	// ListActive returns every active record, ordered by site then URL.
	ListActive(ctx context.Context) ([]*entity.InventoryRecord, error)
	// SaveAttributes attaches an attribute payload to an existing record.
	SaveAttributes(ctx context.Context, url string, attrs *entity.AttributeRecord) error
	// MarkStale flips is_active to false for records not verified since cutoff.
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}
