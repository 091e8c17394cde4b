// Package memory holds process-local repositories for dry runs and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
)

// InventoryRepoImpl is a mutex-guarded map keyed by URL.
type InventoryRepoImpl struct {
	mu      sync.RWMutex
	records map[string]*entity.InventoryRecord
}

func NewInventoryRepo() *InventoryRepoImpl {
	return &InventoryRepoImpl{records: make(map[string]*entity.InventoryRecord)}
}

func (r *InventoryRepoImpl) UpsertDiscovered(_ context.Context, siteName string, urls []string, ts time.Time) (entity.UpsertResult, error) {
	var result entity.UpsertResult
	if len(urls) == 0 {
		return result, nil
	}

	sorted := append([]string(nil), urls...)
	sort.Strings(sorted)
	ts = ts.UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(sorted))
	for _, u := range sorted {
		if seen[u] {
			continue
		}
		seen[u] = true

		rec, ok := r.records[u]
		if !ok {
			r.records[u] = &entity.InventoryRecord{
				URL:               u,
				SiteName:          siteName,
				FirstDiscoveredAt: ts,
				LastVerifiedAt:    ts,
				IsActive:          true,
			}
			result.Inserted++
			result.NewURLs = append(result.NewURLs, u)
			continue
		}
		if ts.After(rec.LastVerifiedAt) {
			rec.LastVerifiedAt = ts
		}
		rec.IsActive = true
		result.Reverified++
	}
	return result, nil
}

func (r *InventoryRepoImpl) Get(_ context.Context, url string) (*entity.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[url]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(rec), nil
}

func (r *InventoryRepoImpl) ListBySite(_ context.Context, siteName string) ([]*entity.InventoryRecord, error) {
	return r.filter(func(rec *entity.InventoryRecord) bool { return rec.SiteName == siteName }), nil
}

func (r *InventoryRepoImpl) ListActive(_ context.Context) ([]*entity.InventoryRecord, error) {
	records := r.filter(func(rec *entity.InventoryRecord) bool { return rec.IsActive })
	sort.SliceStable(records, func(i, j int) bool { return records[i].SiteName < records[j].SiteName })
	return records, nil
}

func (r *InventoryRepoImpl) SaveAttributes(_ context.Context, url string, attrs *entity.AttributeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[url]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Attributes = cloneAttributes(attrs)
	return nil
}

func (r *InventoryRepoImpl) MarkStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, rec := range r.records {
		if rec.IsActive && rec.LastVerifiedAt.Before(cutoff) {
			rec.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *InventoryRepoImpl) Ping(context.Context) error { return nil }

// filter returns copies of the matching records ordered by URL.
func (r *InventoryRepoImpl) filter(keep func(*entity.InventoryRecord) bool) []*entity.InventoryRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.InventoryRecord
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

func clone(rec *entity.InventoryRecord) *entity.InventoryRecord {
	c := *rec
	if rec.Attributes != nil {
		c.Attributes = cloneAttributes(rec.Attributes)
	}
	return &c
}

func cloneAttributes(attrs *entity.AttributeRecord) *entity.AttributeRecord {
	c := *attrs
	c.Extra = maps.Clone(attrs.Extra)
	return &c
}
