package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/internal/domain/repository"
	"github.com/buddybloom/buddybloom/internal/infrastructure/memory"
)

func seedUser(t *testing.T, s *memory.Store, id, username string) *entity.User {
	t.Helper()
	u, created, err := s.UpsertUser(context.Background(), &entity.User{
		ID:       id,
		Username: username,
		Name:     "User " + username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	require.True(t, created)
	return u
}

func TestUpsertUserIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	first := seedUser(t, s, "id-1", "alice")
	assert.Zero(t, first.FollowersCount)
	assert.Zero(t, first.FollowingCount)

	// Same username, different id: existing record comes back unchanged.
	again, created, err := s.UpsertUser(ctx, &entity.User{ID: "id-2", Username: "alice", Name: "Imposter"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "id-1", again.ID)
	assert.Equal(t, "User alice", again.Name)
}

func TestGetUserAbsentReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	u, err := s.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = s.GetUserByUsername(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUpdateUserFields(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")

	updated, err := s.UpdateUserFields(ctx, "id-1", map[string]any{"bio": "hello", "name": "Alice A."})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "Alice A.", updated.Name)

	// Unknown id is absence, not an error.
	missing, err := s.UpdateUserFields(ctx, "ghost", map[string]any{"bio": "x"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Empty field map is rejected.
	_, err = s.UpdateUserFields(ctx, "id-1", nil)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)

	// Renaming onto a taken username breaks the uniqueness rule.
	_, err = s.UpdateUserFields(ctx, "id-1", map[string]any{"username": "bob"})
	assert.ErrorIs(t, err, entity.ErrConstraintViolation)

	// Renaming to a free username releases the old one.
	renamed, err := s.UpdateUserFields(ctx, "id-1", map[string]any{"username": "alicia"})
	require.NoError(t, err)
	assert.Equal(t, "alicia", renamed.Username)
	old, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, old)
}

func TestFollowCreatesEdgeAndCounters(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")

	outcome, err := s.UpsertFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, repository.FollowCreated, outcome)

	alice, _ := s.GetUserByUsername(ctx, "alice")
	bob, _ := s.GetUserByUsername(ctx, "bob")
	assert.Equal(t, 1, alice.FollowingCount)
	assert.Equal(t, 0, alice.FollowersCount)
	assert.Equal(t, 1, bob.FollowersCount)
	assert.Equal(t, 0, bob.FollowingCount)

	following, err := s.Following(ctx, "alice", 0, 10)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)

	followers, err := s.Followers(ctx, "bob", 0, 10)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)
}

func TestFollowIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")

	outcome, err := s.UpsertFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, repository.FollowCreated, outcome)

	outcome, err = s.UpsertFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, repository.FollowExists, outcome)

	alice, _ := s.GetUserByUsername(ctx, "alice")
	bob, _ := s.GetUserByUsername(ctx, "bob")
	assert.Equal(t, 1, alice.FollowingCount)
	assert.Equal(t, 1, bob.FollowersCount)
}

func TestFollowMissingUser(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")

	outcome, err := s.UpsertFollow(ctx, "alice", "ghost")
	require.NoError(t, err)
	assert.Equal(t, repository.FollowUserMissing, outcome)

	alice, _ := s.GetUserByUsername(ctx, "alice")
	assert.Zero(t, alice.FollowingCount)
}

func TestConcurrentFollowSinglePairIncrementsOnce(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.UpsertFollow(ctx, "alice", "bob")
			assert.NoError(t, err)
			if outcome == repository.FollowCreated {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount, "exactly one call should observe the creation")
	alice, _ := s.GetUserByUsername(ctx, "alice")
	bob, _ := s.GetUserByUsername(ctx, "bob")
	assert.Equal(t, 1, alice.FollowingCount)
	assert.Equal(t, 1, bob.FollowersCount)
}

func TestUnfollowInverseOfFollow(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")

	_, err := s.UpsertFollow(ctx, "alice", "bob")
	require.NoError(t, err)

	removed, err := s.DeleteFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, removed)

	alice, _ := s.GetUserByUsername(ctx, "alice")
	bob, _ := s.GetUserByUsername(ctx, "bob")
	assert.Zero(t, alice.FollowingCount)
	assert.Zero(t, bob.FollowersCount)

	following, err := s.Following(ctx, "alice", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestUnfollowAbsentEdgeReturnsFalse(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")

	removed, err := s.DeleteFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, removed)

	// Repeated unfollow never drives a counter negative.
	_, err = s.UpsertFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = s.DeleteFollow(ctx, "alice", "bob")
		require.NoError(t, err)
	}
	alice, _ := s.GetUserByUsername(ctx, "alice")
	bob, _ := s.GetUserByUsername(ctx, "bob")
	assert.Zero(t, alice.FollowingCount)
	assert.Zero(t, bob.FollowersCount)
}

func TestFollowersPaginationPartitionsOrdered(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-0", "hub")
	for _, name := range []string{"dave", "bea", "carol", "abel"} {
		seedUser(t, s, "id-"+name, name)
		_, err := s.UpsertFollow(ctx, name, "hub")
		require.NoError(t, err)
	}

	page1, err := s.Followers(ctx, "hub", 0, 2)
	require.NoError(t, err)
	page2, err := s.Followers(ctx, "hub", 2, 2)
	require.NoError(t, err)

	names := func(users []*entity.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}
	assert.Equal(t, []string{"abel", "bea"}, names(page1))
	assert.Equal(t, []string{"carol", "dave"}, names(page2))

	beyond, err := s.Followers(ctx, "hub", 4, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMutualConnections(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	for _, name := range []string{"a", "b", "x", "y", "z"} {
		seedUser(t, s, "id-"+name, name)
	}
	// a -> x, a -> y, b -> x, b -> z: only x is mutual.
	for _, pair := range [][2]string{{"a", "x"}, {"a", "y"}, {"b", "x"}, {"b", "z"}} {
		_, err := s.UpsertFollow(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	mutuals, err := s.MutualConnections(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, mutuals, 1)
	assert.Equal(t, "x", mutuals[0].Username)
}

func TestRecommendationsRankedAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	for _, name := range []string{"me", "f1", "f2", "popular", "niche", "known"} {
		seedUser(t, s, "id-"+name, name)
	}
	// me follows f1, f2 and known.
	// popular is reachable via both friends, niche via one, known is
	// already followed and must not appear.
	for _, pair := range [][2]string{
		{"me", "f1"}, {"me", "f2"}, {"me", "known"},
		{"f1", "popular"}, {"f2", "popular"},
		{"f1", "niche"},
		{"f1", "known"},
		{"f1", "me"}, // back-edge: the requester must never be a candidate
	} {
		_, err := s.UpsertFollow(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	recs, err := s.Recommendations(ctx, "me", 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "popular", recs[0].User.Username)
	assert.Equal(t, 2, recs[0].Strength)
	assert.Equal(t, "niche", recs[1].User.Username)
	assert.Equal(t, 1, recs[1].Strength)
}

func TestRecommendationsTieBreakByUsername(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	for _, name := range []string{"me", "friend", "zeta", "alpha"} {
		seedUser(t, s, "id-"+name, name)
	}
	for _, pair := range [][2]string{{"me", "friend"}, {"friend", "zeta"}, {"friend", "alpha"}} {
		_, err := s.UpsertFollow(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	recs, err := s.Recommendations(ctx, "me", 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "alpha", recs[0].User.Username)
	assert.Equal(t, "zeta", recs[1].User.Username)
}

func TestFollowChainScenario(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")
	seedUser(t, s, "id-3", "carol")

	outcome, err := s.UpsertFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, repository.FollowCreated, outcome)

	alice, _ := s.GetUserByUsername(ctx, "alice")
	bob, _ := s.GetUserByUsername(ctx, "bob")
	assert.Equal(t, 1, alice.FollowingCount)
	assert.Equal(t, 1, bob.FollowersCount)

	outcome, err = s.UpsertFollow(ctx, "bob", "carol")
	require.NoError(t, err)
	assert.Equal(t, repository.FollowCreated, outcome)

	recs, err := s.Recommendations(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "carol", recs[0].User.Username)
	assert.Equal(t, 1, recs[0].Strength)
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")
	seedUser(t, s, "id-2", "bob")
	seedUser(t, s, "id-3", "carol")
	// bob is followed by alice and follows carol.
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "carol"}} {
		_, err := s.UpsertFollow(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	removed, err := s.DeleteUser(ctx, "id-2")
	require.NoError(t, err)
	assert.True(t, removed)

	gone, err := s.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, gone)

	alice, _ := s.GetUserByUsername(ctx, "alice")
	carol, _ := s.GetUserByUsername(ctx, "carol")
	assert.Zero(t, alice.FollowingCount, "alice's edge to bob is gone")
	assert.Zero(t, carol.FollowersCount, "bob's edge to carol is gone")

	removed, err = s.DeleteUser(ctx, "id-2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seedUser(t, s, "id-1", "alice")

	u, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	u.Name = "mutated"

	fresh, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "User alice", fresh.Name)
}
