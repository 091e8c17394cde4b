package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/usecase"
)

// blockingDiscoverer records runs and blocks each one until released.
type blockingDiscoverer struct {
	mu      sync.Mutex
	release chan struct{}
	runs    [][]string
}

func (d *blockingDiscoverer) RunSite(context.Context, *discovery.Site) usecase.DiscoveryResult {
	return usecase.DiscoveryResult{}
}

func (d *blockingDiscoverer) RunAll(_ context.Context, runID string, sites []*discovery.Site) entity.RunSummary {
	names := make([]string, len(sites))
	for i, s := range sites {
		names[i] = s.Name()
	}
	d.mu.Lock()
	d.runs = append(d.runs, names)
	d.mu.Unlock()
	<-d.release
	return entity.RunSummary{RunID: runID}
}

func testSites(t *testing.T, names ...string) []*discovery.Site {
	t.Helper()
	var sites []*discovery.Site
	for _, n := range names {
		s, err := discovery.NewSite(entity.SiteDefinition{Name: n, ListingURL: "https://" + n + ".example/"})
		require.NoError(t, err)
		sites = append(sites, s)
	}
	return sites
}

func TestTriggerIsSingleFlight(t *testing.T) {
	d := &blockingDiscoverer{release: make(chan struct{})}
	r := NewRunner(context.Background(), d, testSites(t, "a", "b"), nil)
	ids := []string{"run-1", "run-2"}
	r.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	finished := make(chan entity.RunSummary, 1)
	r.onFinish = func(s entity.RunSummary) { finished <- s }

	id, err := r.Trigger("")
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)

	busy, err := r.Trigger("")
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, "run-1", busy)

	close(d.release)
	select {
	case s := <-finished:
		assert.Equal(t, "run-1", s.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
	r.Wait()

	_, running := r.Current()
	assert.False(t, running)

	id, err = r.Trigger("b")
	require.NoError(t, err)
	assert.Equal(t, "run-2", id)
	r.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, [][]string{{"a", "b"}, {"b"}}, d.runs)
}

func TestTriggerUnknownSite(t *testing.T) {
	r := NewRunner(context.Background(), &blockingDiscoverer{}, testSites(t, "a"), nil)
	_, err := r.Trigger("zzz")
	assert.ErrorIs(t, err, ErrUnknownSite)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	r := NewRunner(context.Background(), &blockingDiscoverer{}, nil, nil)
	_, err := New(r, "every tuesday", nil)
	assert.Error(t, err)

	s, err := New(r, "0 3 * * *", nil)
	require.NoError(t, err)
	s.Start()
	<-s.Stop().Done()
}
