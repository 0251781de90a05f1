package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybloom/buddybloom/internal/application"
	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/internal/infrastructure/memory"
)

func newQueryFixture(t *testing.T, edges [][2]string, usernames ...string) *application.QueryService {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	registry := application.NewRegistryService(store, quietLogger())
	follow := application.NewFollowService(store, nil, nil, quietLogger())
	for _, name := range usernames {
		_, _, err := registry.Register(ctx, validInput(name))
		require.NoError(t, err)
	}
	for _, e := range edges {
		ok, err := follow.Follow(ctx, e[0], e[1])
		require.NoError(t, err)
		require.True(t, ok)
	}
	return application.NewQueryService(store, nil, quietLogger())
}

func TestWindowValidation(t *testing.T) {
	ctx := context.Background()
	svc := newQueryFixture(t, nil, "alice")

	_, err := svc.GetFollowers(ctx, "alice", -1, 10)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)

	_, err = svc.GetFollowers(ctx, "alice", 0, 0)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)

	_, err = svc.GetFollowing(ctx, "alice", 0, application.DefaultMaxPageSize+1)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)

	svc.MaxPageSize = 10
	_, err = svc.GetFollowers(ctx, "alice", 0, 11)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)
	_, err = svc.GetFollowers(ctx, "alice", 0, 10)
	assert.NoError(t, err)
}

func TestGetFollowersUnknownUserEmpty(t *testing.T) {
	ctx := context.Background()
	svc := newQueryFixture(t, nil, "alice")

	users, err := svc.GetFollowers(ctx, "ghost", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGetFollowersAndFollowing(t *testing.T) {
	ctx := context.Background()
	svc := newQueryFixture(t,
		[][2]string{{"bob", "alice"}, {"carol", "alice"}, {"alice", "bob"}},
		"alice", "bob", "carol")

	followers, err := svc.GetFollowers(ctx, "alice", 0, 10)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "bob", followers[0].Username)
	assert.Equal(t, "carol", followers[1].Username)

	following, err := svc.GetFollowing(ctx, "alice", 0, 10)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)
}

func TestGetMutualConnections(t *testing.T) {
	ctx := context.Background()
	svc := newQueryFixture(t,
		[][2]string{{"alice", "carol"}, {"alice", "dave"}, {"bob", "carol"}},
		"alice", "bob", "carol", "dave")

	mutuals, err := svc.GetMutualConnections(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, mutuals, 1)
	assert.Equal(t, "carol", mutuals[0].Username)
}

func TestGetRecommendations(t *testing.T) {
	ctx := context.Background()
	svc := newQueryFixture(t,
		[][2]string{
			{"alice", "bob"}, {"alice", "carol"},
			{"bob", "dave"}, {"carol", "dave"},
			{"bob", "erin"},
		},
		"alice", "bob", "carol", "dave", "erin")

	recs, err := svc.GetRecommendations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "dave", recs[0].User.Username)
	assert.Equal(t, 2, recs[0].Strength)
	assert.Equal(t, "erin", recs[1].User.Username)
	assert.Equal(t, 1, recs[1].Strength)
}

func TestGetRecommendationsCapped(t *testing.T) {
	ctx := context.Background()
	usernames := []string{"alice", "hubfriend", "cand1", "cand2", "cand3", "cand4", "cand5", "cand6", "cand7"}
	edges := [][2]string{{"alice", "hubfriend"}}
	for _, c := range usernames[2:] {
		edges = append(edges, [2]string{"hubfriend", c})
	}
	svc := newQueryFixture(t, edges, usernames...)

	recs, err := svc.GetRecommendations(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, recs, application.RecommendationLimit)
}
