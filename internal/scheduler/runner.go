// Package scheduler starts discovery runs on demand and on a cron schedule.
// At most one run is in flight per process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/usecase"
)

var (
	ErrRunInProgress = errors.New("discovery run already in progress")
	ErrUnknownSite   = errors.New("unknown site")
)

// Runner executes discovery runs in the background.
type Runner struct {
	ctx        context.Context
	discoverer usecase.Discoverer
	sites      []*discovery.Site
	logger     *zap.Logger
	newID      func() string
	onFinish   func(entity.RunSummary)

	mu      sync.Mutex
	current string
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. Runs inherit ctx, so cancelling it stops them.
func NewRunner(ctx context.Context, d usecase.Discoverer, sites []*discovery.Site, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		ctx:        ctx,
		discoverer: d,
		sites:      sites,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// Sites returns the configured sites.
func (r *Runner) Sites() []*discovery.Site {
	return r.sites
}

// Trigger starts a run over every site, or only siteName when set, and
// returns its id without waiting for it.
func (r *Runner) Trigger(siteName string) (string, error) {
	sites := r.sites
	if siteName != "" {
		sites = nil
		for _, s := range r.sites {
			if s.Name() == siteName {
				sites = []*discovery.Site{s}
				break
			}
		}
		if sites == nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownSite, siteName)
		}
	}

	r.mu.Lock()
	if r.current != "" {
		id := r.current
		r.mu.Unlock()
		return id, ErrRunInProgress
	}
	id := r.newID()
	r.current = id
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		summary := r.discoverer.RunAll(r.ctx, id, sites)

		r.mu.Lock()
		r.current = ""
		onFinish := r.onFinish
		r.mu.Unlock()

		if onFinish != nil {
			onFinish(summary)
		}
	}()
	return id, nil
}

// Current returns the id of the run in flight, if any.
func (r *Runner) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current != ""
}

// Wait blocks until the run in flight, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
