package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/user/cardscout/internal/entity"
)

// FailureRepoImpl keeps discovery failures in memory.
type FailureRepoImpl struct {
	mu       sync.Mutex
	failures map[string]*entity.DiscoveryFailure
}

func NewFailureRepo() *FailureRepoImpl {
	return &FailureRepoImpl{failures: make(map[string]*entity.DiscoveryFailure)}
}

func (r *FailureRepoImpl) SaveOrUpdate(_ context.Context, failure *entity.DiscoveryFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := 1
	if prev, ok := r.failures[failure.SiteName]; ok {
		attempts = prev.AttemptCount + 1
	}
	f := *failure
	f.AttemptCount = attempts
	r.failures[failure.SiteName] = &f
	return nil
}

func (r *FailureRepoImpl) List(context.Context) ([]*entity.DiscoveryFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.DiscoveryFailure, 0, len(r.failures))
	for _, f := range r.failures {
		c := *f
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteName < out[j].SiteName })
	return out, nil
}

func (r *FailureRepoImpl) Delete(_ context.Context, siteName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, siteName)
	return nil
}
