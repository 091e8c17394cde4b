package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
)

func TestQueueIsFIFO(t *testing.T) {
	q := NewQueueRepo()
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "a", "b"))
	require.NoError(t, q.Push(ctx, "c"))
	size, _ := q.Size(ctx)
	assert.EqualValues(t, 3, size)

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, repository.ErrQueueEmpty)
}

func TestSummaryLatest(t *testing.T) {
	r := NewSummaryRepo()
	ctx := context.Background()

	_, err := r.Latest(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, r.SaveLatest(ctx, &entity.RunSummary{RunID: "r1", Sites: []entity.SiteSummary{{Site: "A"}}}))
	got, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RunID)
	assert.Len(t, got.Sites, 1)
}

func TestSiteLock(t *testing.T) {
	r := NewSiteLockRepo()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := r.TryLock(ctx, "A", "run-1", time.Minute)
	assert.True(t, ok)
	ok, _ = r.TryLock(ctx, "A", "run-2", time.Minute)
	assert.False(t, ok)

	// A foreign owner cannot release the lock.
	require.NoError(t, r.Unlock(ctx, "A", "run-2"))
	ok, _ = r.TryLock(ctx, "A", "run-2", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = r.TryLock(ctx, "A", "run-2", time.Minute)
	assert.True(t, ok)
}
