// Package memory provides a thread-safe in-memory GraphStore used by unit
// tests and the local (storeless) mode of the console app. All public
// methods return deep copies so callers can never mutate stored state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/internal/domain/repository"
)

// Store keeps User nodes and Follows edges behind a single RWMutex.
// Each write method is one critical section, which is what makes the
// edge-plus-counters unit atomic for this adapter.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*entity.User
	byUsername map[string]string              // username -> user id
	follows    map[string]map[string]time.Time // follower id -> followee id -> created at
}

func NewStore() *Store {
	return &Store{
		byID:       make(map[string]*entity.User),
		byUsername: make(map[string]string),
		follows:    make(map[string]map[string]time.Time),
	}
}

var _ repository.GraphStore = (*Store)(nil)

func clone(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (s *Store) UpsertUser(ctx context.Context, u *entity.User) (*entity.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byUsername[u.Username]; ok {
		return clone(s.byID[id]), false, nil
	}
	now := time.Now().UTC()
	stored := clone(u)
	stored.FollowersCount = 0
	stored.FollowingCount = 0
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.byID[stored.ID] = stored
	s.byUsername[stored.Username] = stored.ID
	return clone(stored), true, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.byID[id]), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	return clone(s.byID[id]), nil
}

func (s *Store) UpdateUserFields(ctx context.Context, id string, fields map[string]any) (*entity.User, error) {
	if len(fields) == 0 {
		return nil, entity.ErrNoFields
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	for k, v := range fields {
		sv, _ := v.(string)
		switch k {
		case "username":
			if other, taken := s.byUsername[sv]; taken && other != id {
				return nil, entity.ErrConstraintViolation
			}
			delete(s.byUsername, u.Username)
			u.Username = sv
			s.byUsername[sv] = id
		case "name":
			u.Name = sv
		case "email":
			u.Email = sv
		case "bio":
			u.Bio = sv
		case "avatarUrl":
			u.AvatarURL = sv
		case "passwordHash":
			u.PasswordHash = sv
		}
	}
	u.UpdatedAt = time.Now().UTC()
	return clone(u), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	// Cascade: drop outgoing edges and decrement each followee's counter.
	for followeeID := range s.follows[id] {
		if followee, live := s.byID[followeeID]; live && followee.FollowersCount > 0 {
			followee.FollowersCount--
		}
	}
	delete(s.follows, id)
	// Drop incoming edges and decrement each follower's counter.
	for followerID, targets := range s.follows {
		if _, had := targets[id]; had {
			delete(targets, id)
			if follower, live := s.byID[followerID]; live && follower.FollowingCount > 0 {
				follower.FollowingCount--
			}
		}
	}
	delete(s.byUsername, u.Username)
	delete(s.byID, id)
	return true, nil
}

func (s *Store) UpsertFollow(ctx context.Context, followerUsername, followeeUsername string) (repository.FollowOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	followerID, ok1 := s.byUsername[followerUsername]
	followeeID, ok2 := s.byUsername[followeeUsername]
	if !ok1 || !ok2 {
		return repository.FollowUserMissing, nil
	}
	targets := s.follows[followerID]
	if targets == nil {
		targets = make(map[string]time.Time)
		s.follows[followerID] = targets
	}
	if _, exists := targets[followeeID]; exists {
		return repository.FollowExists, nil
	}
	targets[followeeID] = time.Now().UTC()
	s.byID[followerID].FollowingCount++
	s.byID[followeeID].FollowersCount++
	return repository.FollowCreated, nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerUsername, followeeUsername string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	followerID, ok1 := s.byUsername[followerUsername]
	followeeID, ok2 := s.byUsername[followeeUsername]
	if !ok1 || !ok2 {
		return false, nil
	}
	targets := s.follows[followerID]
	if _, exists := targets[followeeID]; !exists {
		return false, nil
	}
	delete(targets, followeeID)
	if follower := s.byID[followerID]; follower.FollowingCount > 0 {
		follower.FollowingCount--
	}
	if followee := s.byID[followeeID]; followee.FollowersCount > 0 {
		followee.FollowersCount--
	}
	return true, nil
}

func (s *Store) Followers(ctx context.Context, username string, offset, limit int) ([]*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	var out []*entity.User
	for followerID, targets := range s.follows {
		if _, has := targets[id]; has {
			out = append(out, clone(s.byID[followerID]))
		}
	}
	return window(out, offset, limit), nil
}

func (s *Store) Following(ctx context.Context, username string, offset, limit int) ([]*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	var out []*entity.User
	for followeeID := range s.follows[id] {
		out = append(out, clone(s.byID[followeeID]))
	}
	return window(out, offset, limit), nil
}

func (s *Store) MutualConnections(ctx context.Context, usernameA, usernameB string) ([]*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idA, ok1 := s.byUsername[usernameA]
	idB, ok2 := s.byUsername[usernameB]
	if !ok1 || !ok2 {
		return nil, nil
	}
	var out []*entity.User
	for followeeID := range s.follows[idA] {
		if _, both := s.follows[idB][followeeID]; both {
			out = append(out, clone(s.byID[followeeID]))
		}
	}
	sortByUsername(out)
	return out, nil
}

func (s *Store) Recommendations(ctx context.Context, username string, limit int) ([]*entity.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	direct := s.follows[id]
	strength := make(map[string]int) // candidate id -> distinct bridge count
	for friendID := range direct {
		for candidateID := range s.follows[friendID] {
			if candidateID == id {
				continue
			}
			if _, followed := direct[candidateID]; followed {
				continue
			}
			strength[candidateID]++
		}
	}
	recs := make([]*entity.Recommendation, 0, len(strength))
	for candidateID, n := range strength {
		recs = append(recs, &entity.Recommendation{User: clone(s.byID[candidateID]), Strength: n})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Strength != recs[j].Strength {
			return recs[i].Strength > recs[j].Strength
		}
		return recs[i].User.Username < recs[j].User.Username
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func sortByUsername(users []*entity.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
}

func window(users []*entity.User, offset, limit int) []*entity.User {
	sortByUsername(users)
	if offset >= len(users) {
		return nil
	}
	users = users[offset:]
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users
}
