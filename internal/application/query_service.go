package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	repo "github.com/buddybloom/buddybloom/internal/domain/repository"
)

const (
	// DefaultMaxPageSize bounds follower/following windows when the service
	// is constructed without an explicit limit.
	DefaultMaxPageSize = 1000

	// RecommendationLimit is the fixed length cap of a recommendation list.
	RecommendationLimit = 5
)

// QueryService serves the read-side traversals. Pagination bounds are
// validated here and never silently clamped. The cache, when present, holds
// recommendation lists only; counters and edges are always read from the
// store so every read reflects committed state.
type QueryService struct {
	Store             repo.GraphStore
	Cache             RecommendationCache
	Logger            *logrus.Logger
	MaxPageSize       int
	RecommendationTTL time.Duration
}

func NewQueryService(store repo.GraphStore, cache RecommendationCache, logger *logrus.Logger) *QueryService {
	return &QueryService{Store: store, Cache: cache, Logger: logger}
}

func (s *QueryService) maxPageSize() int {
	if s.MaxPageSize > 0 {
		return s.MaxPageSize
	}
	return DefaultMaxPageSize
}

func (s *QueryService) checkWindow(offset, limit int) error {
	if offset < 0 {
		return fmt.Errorf("%w: offset %d must be >= 0", entity.ErrInvalidArgument, offset)
	}
	if limit <= 0 || limit > s.maxPageSize() {
		return fmt.Errorf("%w: limit %d must be in 1..%d", entity.ErrInvalidArgument, limit, s.maxPageSize())
	}
	return nil
}

// GetFollowers lists users following username, ordered by username
// ascending, windowed by (offset, limit). An unknown username yields an
// empty list, not an error.
func (s *QueryService) GetFollowers(ctx context.Context, username string, offset, limit int) ([]*entity.User, error) {
	if err := s.checkWindow(offset, limit); err != nil {
		return nil, err
	}
	return s.Store.Followers(ctx, username, offset, limit)
}

// GetFollowing lists users that username follows; otherwise symmetric to
// GetFollowers.
func (s *QueryService) GetFollowing(ctx context.Context, username string, offset, limit int) ([]*entity.User, error) {
	if err := s.checkWindow(offset, limit); err != nil {
		return nil, err
	}
	return s.Store.Following(ctx, username, offset, limit)
}

// GetMutualConnections returns users followed by both, username ascending.
func (s *QueryService) GetMutualConnections(ctx context.Context, usernameA, usernameB string) ([]*entity.User, error) {
	return s.Store.MutualConnections(ctx, usernameA, usernameB)
}

// GetRecommendations ranks two-hop candidates by the number of distinct
// friends bridging to them, strength descending then candidate username
// ascending, capped at RecommendationLimit. Users already followed, and the
// requester, never appear.
func (s *QueryService) GetRecommendations(ctx context.Context, username string) ([]*entity.Recommendation, error) {
	if s.Cache != nil && s.RecommendationTTL > 0 {
		cached, hit, err := s.Cache.Get(ctx, username)
		if err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("username", username).Warn("recommendation cache read failed")
		}
		if hit {
			return cached, nil
		}
	}
	recs, err := s.Store.Recommendations(ctx, username, RecommendationLimit)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil && s.RecommendationTTL > 0 {
		if err := s.Cache.Set(ctx, username, recs, s.RecommendationTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("username", username).Warn("recommendation cache write failed")
		}
	}
	return recs, nil
}
