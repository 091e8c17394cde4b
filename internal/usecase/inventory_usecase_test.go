package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/adapter/memory"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
)

func TestLookupNormalizesURL(t *testing.T) {
	inv := memory.NewInventoryRepo()
	_, err := inv.UpsertDiscovered(context.Background(), "A", []string{"https://a.example/cards/gold"}, time.Now())
	require.NoError(t, err)
	m := NewInventoryManager(inv, nil, nil)

	rec, err := m.Lookup(context.Background(), "https://a.example/cards/gold/#apply")
	require.NoError(t, err)
	assert.Equal(t, "A", rec.SiteName)

	_, err = m.Lookup(context.Background(), "https://a.example/cards/silver")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = m.Lookup(context.Background(), "/cards/gold")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestHousekeep(t *testing.T) {
	inv := memory.NewInventoryRepo()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_, _ = inv.UpsertDiscovered(ctx, "A", []string{"old"}, now.Add(-30*24*time.Hour))
	_, _ = inv.UpsertDiscovered(ctx, "A", []string{"fresh"}, now.Add(-time.Hour))

	m := NewInventoryManager(inv, nil, nil).(*inventoryUseCase)
	m.now = func() time.Time { return now }

	_, err := m.Housekeep(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidStaleAfter)

	n, err := m.Housekeep(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := m.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].URL)

	all, err := m.ListBySite(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLatestRunAndFailures(t *testing.T) {
	ctx := context.Background()
	m := NewInventoryManager(memory.NewInventoryRepo(), nil, nil)

	_, err := m.LatestRun(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	failures, err := m.Failures(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures)

	summaries := memory.NewSummaryRepo()
	fr := memory.NewFailureRepo()
	require.NoError(t, summaries.SaveLatest(ctx, &entity.RunSummary{RunID: "r1"}))
	require.NoError(t, fr.SaveOrUpdate(ctx, &entity.DiscoveryFailure{SiteName: "A"}))
	m = NewInventoryManager(memory.NewInventoryRepo(), fr, summaries)

	latest, err := m.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", latest.RunID)
	failures, err = m.Failures(ctx)
	require.NoError(t, err)
	assert.Len(t, failures, 1)
	assert.NoError(t, m.Ping(ctx))
}
