package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	repo "github.com/buddybloom/buddybloom/internal/domain/repository"
	"github.com/buddybloom/buddybloom/pkg/helpers"
	"github.com/buddybloom/buddybloom/pkg/mailer"
)

// FollowService drives the two-state machine per ordered user pair:
// NOT_FOLLOWING <-> FOLLOWING. Atomicity of the edge-plus-counters unit is
// delegated to the store; this layer does validation, cache invalidation
// and notification fan-out. Events and Cache are optional.
type FollowService struct {
	Store  repo.GraphStore
	Events *helpers.RabbitPublisher
	Cache  RecommendationCache
	Logger *logrus.Logger
}

func NewFollowService(store repo.GraphStore, events *helpers.RabbitPublisher, cache RecommendationCache, logger *logrus.Logger) *FollowService {
	return &FollowService{Store: store, Events: events, Cache: cache, Logger: logger}
}

// Follow creates the follower -> followee edge. Self-follow fails with
// ErrSelfFollow; an unknown username on either side returns false with no
// side effect. An already-existing edge still returns true: repeating the
// call converges on the same state.
func (s *FollowService) Follow(ctx context.Context, followerUsername, followeeUsername string) (bool, error) {
	if followerUsername == followeeUsername {
		return false, entity.ErrSelfFollow
	}
	outcome, err := s.Store.UpsertFollow(ctx, followerUsername, followeeUsername)
	if err != nil {
		return false, err
	}
	switch outcome {
	case repo.FollowUserMissing:
		return false, nil
	case repo.FollowExists:
		return true, nil
	}
	// First creation of this edge.
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"follower": followerUsername,
			"followee": followeeUsername,
		}).Info("follow created")
	}
	s.invalidateRecommendations(ctx, followerUsername, followeeUsername)
	s.publishFollowerNotification(ctx, followerUsername, followeeUsername)
	return true, nil
}

// Unfollow removes the edge. Unlike Follow, a missing edge returns false:
// there was nothing to remove. Counters are decremented with a floor of
// zero inside the store's atomic unit.
func (s *FollowService) Unfollow(ctx context.Context, followerUsername, followeeUsername string) (bool, error) {
	if followerUsername == followeeUsername {
		return false, entity.ErrSelfFollow
	}
	removed, err := s.Store.DeleteFollow(ctx, followerUsername, followeeUsername)
	if err != nil {
		return false, err
	}
	if removed {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"follower": followerUsername,
				"followee": followeeUsername,
			}).Info("follow removed")
		}
		s.invalidateRecommendations(ctx, followerUsername, followeeUsername)
	}
	return removed, nil
}

// invalidateRecommendations drops both endpoints' cached lists after a
// successful edge mutation, so the next read recomputes from the store.
func (s *FollowService) invalidateRecommendations(ctx context.Context, usernames ...string) {
	if s.Cache == nil {
		return
	}
	for _, name := range usernames {
		if err := s.Cache.Invalidate(ctx, name); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("username", name).Warn("recommendation cache invalidation failed")
		}
	}
}

// publishFollowerNotification enqueues a "new follower" job for the notify
// worker. Delivery is best effort: a publish failure never fails the follow.
func (s *FollowService) publishFollowerNotification(ctx context.Context, followerUsername, followeeUsername string) {
	if s.Events == nil {
		return
	}
	followee, err := s.Store.GetUserByUsername(ctx, followeeUsername)
	if err != nil || followee == nil || followee.Email == "" {
		return
	}
	follower, err := s.Store.GetUserByUsername(ctx, followerUsername)
	if err != nil || follower == nil {
		return
	}
	job := mailer.FollowerNotificationJob{
		To:               followee.Email,
		FolloweeName:     followee.Name,
		FollowerUsername: follower.Username,
		FollowerName:     follower.Name,
		FollowedAt:       time.Now().UTC(),
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.Events.PublishJSON(c, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("followee", followeeUsername).Warn("follower notification publish failed")
	}
}
