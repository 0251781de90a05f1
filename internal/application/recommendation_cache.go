package application

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/pkg/helpers"
)

// RecommendationCache holds computed recommendation lists per username.
// This derived data is the only thing ever cached; counters and edges are
// always read from the store.
type RecommendationCache interface {
	// Get returns the cached list for username. A miss is (nil, false, nil).
	Get(ctx context.Context, username string) ([]*entity.Recommendation, bool, error)
	Set(ctx context.Context, username string, recs []*entity.Recommendation, ttl time.Duration) error
	// Invalidate drops username's cached list. Absent keys are not an error.
	Invalidate(ctx context.Context, username string) error
}

// redisRecommendationCache stores each list as JSON under a per-username key.
type redisRecommendationCache struct {
	rdb *redis.Client
}

// NewRedisRecommendationCache wraps rdb; a nil client yields a nil cache so
// callers can wire it straight through from optional config.
func NewRedisRecommendationCache(rdb *redis.Client) RecommendationCache {
	if rdb == nil {
		return nil
	}
	return &redisRecommendationCache{rdb: rdb}
}

func recommendationsKey(username string) string {
	return "user:recs:" + username
}

func (c *redisRecommendationCache) Get(ctx context.Context, username string) ([]*entity.Recommendation, bool, error) {
	var recs []*entity.Recommendation
	hit, err := helpers.RedisGetJSON(ctx, c.rdb, recommendationsKey(username), &recs)
	if err != nil || !hit {
		return nil, false, err
	}
	return recs, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, username string, recs []*entity.Recommendation, ttl time.Duration) error {
	return helpers.RedisSetJSON(ctx, c.rdb, recommendationsKey(username), recs, ttl)
}

func (c *redisRecommendationCache) Invalidate(ctx context.Context, username string) error {
	return helpers.RedisDel(ctx, c.rdb, recommendationsKey(username))
}
