package memory

import (
	"context"
	"sync"
	"time"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
)

// QueueRepoImpl is an in-process FIFO of pending URLs.
type QueueRepoImpl struct {
	mu    sync.Mutex
	items []string
}

func NewQueueRepo() *QueueRepoImpl {
	return &QueueRepoImpl{}
}

func (q *QueueRepoImpl) Push(_ context.Context, urls ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, urls...)
	return nil
}

func (q *QueueRepoImpl) Pop(context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", repository.ErrQueueEmpty
	}
	u := q.items[0]
	q.items = q.items[1:]
	return u, nil
}

func (q *QueueRepoImpl) Size(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

// SummaryRepoImpl keeps the latest run summary.
type SummaryRepoImpl struct {
	mu     sync.RWMutex
	latest *entity.RunSummary
}

func NewSummaryRepo() *SummaryRepoImpl {
	return &SummaryRepoImpl{}
}

func (r *SummaryRepoImpl) SaveLatest(_ context.Context, summary *entity.RunSummary) error {
	c := *summary
	c.Sites = append([]entity.SiteSummary(nil), summary.Sites...)
	r.mu.Lock()
	r.latest = &c
	r.mu.Unlock()
	return nil
}

func (r *SummaryRepoImpl) Latest(context.Context) (*entity.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil, repository.ErrNotFound
	}
	c := *r.latest
	return &c, nil
}

// SiteLockRepoImpl is a per-process site lock with expiry.
type SiteLockRepoImpl struct {
	mu    sync.Mutex
	locks map[string]lease
	now   func() time.Time
}

type lease struct {
	owner   string
	expires time.Time
}

func NewSiteLockRepo() *SiteLockRepoImpl {
	return &SiteLockRepoImpl{locks: make(map[string]lease), now: time.Now}
}

func (r *SiteLockRepoImpl) TryLock(_ context.Context, siteName, owner string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if l, ok := r.locks[siteName]; ok && now.Before(l.expires) {
		return false, nil
	}
	r.locks[siteName] = lease{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (r *SiteLockRepoImpl) Unlock(_ context.Context, siteName, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[siteName]; ok && l.owner == owner {
		delete(r.locks, siteName)
	}
	return nil
}
