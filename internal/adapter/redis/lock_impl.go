package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const siteLockPrefix = "cardscout:lock:"

// unlockScript deletes the lock only when it is still held by the caller.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SiteLockRepoImpl implements repository.SiteLockRepository with SET NX.
type SiteLockRepoImpl struct {
	client *redis.Client
}

func NewSiteLockRepo(client *redis.Client) *SiteLockRepoImpl {
	return &SiteLockRepoImpl{client: client}
}

func (r *SiteLockRepoImpl) TryLock(ctx context.Context, siteName, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, siteLockPrefix+siteName, owner, ttl).Result()
}

func (r *SiteLockRepoImpl) Unlock(ctx context.Context, siteName, owner string) error {
	return unlockScript.Run(ctx, r.client, []string{siteLockPrefix + siteName}, owner).Err()
}
