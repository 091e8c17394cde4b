package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/user/cardscout/internal/repository"
)

const pendingQueueKey = "cardscout:pending"

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using Redis Lists.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds URLs to the left side of the Redis list (acting as a queue).
func (r *QueueRepoImpl) Push(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	values := make([]any, len(urls))
	for i, u := range urls {
		values[i] = u
	}
	return r.client.LPush(ctx, pendingQueueKey, values...).Err()
}

// Pop removes and returns a URL from the right side of the Redis list.
func (r *QueueRepoImpl) Pop(ctx context.Context) (string, error) {
	url, err := r.client.RPop(ctx, pendingQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrQueueEmpty
	}
	return url, err
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, pendingQueueKey).Result()
}
