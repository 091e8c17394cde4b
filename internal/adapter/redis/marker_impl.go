package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/cardscout/pkg/utils"
)

const extractedURLPrefix = "cardscout:extracted:"

// MarkerRepoImpl provides a concrete implementation for the ExtractionMarkerRepository interface using Redis.
type MarkerRepoImpl struct {
	client *redis.Client
}

// NewMarkerRepo creates a new instance of MarkerRepoImpl.
func NewMarkerRepo(client *redis.Client) *MarkerRepoImpl {
	return &MarkerRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *MarkerRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", extractedURLPrefix, utils.HashURL(url))
}

// MarkExtracted sets the URL's marker key with an expiry.
func (r *MarkerRepoImpl) MarkExtracted(ctx context.Context, url string, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(url), "1", expiry).Err()
}

// IsExtracted checks whether the URL's marker key still exists.
func (r *MarkerRepoImpl) IsExtracted(ctx context.Context, url string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(url)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}
