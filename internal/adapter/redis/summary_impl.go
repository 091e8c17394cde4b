package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
)

const latestSummaryKey = "cardscout:runs:latest"

// SummaryRepoImpl keeps the latest run summary as a JSON string.
type SummaryRepoImpl struct {
	client *redis.Client
}

func NewSummaryRepo(client *redis.Client) *SummaryRepoImpl {
	return &SummaryRepoImpl{client: client}
}

func (r *SummaryRepoImpl) SaveLatest(ctx context.Context, summary *entity.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, latestSummaryKey, payload, 0).Err()
}

func (r *SummaryRepoImpl) Latest(ctx context.Context) (*entity.RunSummary, error) {
	payload, err := r.client.Get(ctx, latestSummaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var summary entity.RunSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
