// Package neo4j adapts the GraphStore port onto a Neo4j (or Aura) database
// through the official Bolt driver. Every write runs as a single Cypher
// statement, so the edge mutation and its counter side effects commit in
// one auto-committed transaction.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/internal/domain/repository"
)

// Store holds a long-lived driver handle, acquired at process start and
// released at shutdown via Close. Sessions are opened per call.
type Store struct {
	driver   neo4jdrv.DriverWithContext
	database string
}

var _ repository.GraphStore = (*Store)(nil)

// NewStore connects to the database and verifies connectivity before
// returning, so a bad URI or credentials fail fast at startup.
func NewStore(ctx context.Context, uri, username, password, database string) (*Store, error) {
	driver, err := neo4jdrv.NewDriverWithContext(uri, neo4jdrv.BasicAuth(username, password, ""))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, mapStoreErr(err)
	}
	return &Store{driver: driver, database: database}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureConstraints installs the uniqueness guarantees the idempotent
// upsert relies on. Safe to call on every startup.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	session := s.session(ctx, neo4jdrv.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT user_username_unique IF NOT EXISTS FOR (u:User) REQUIRE u.username IS UNIQUE`,
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.userId IS UNIQUE`,
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return mapStoreErr(err)
		}
	}
	return nil
}

func (s *Store) session(ctx context.Context, mode neo4jdrv.AccessMode) neo4jdrv.SessionWithContext {
	return s.driver.NewSession(ctx, neo4jdrv.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Store) UpsertUser(ctx context.Context, u *entity.User) (*entity.User, bool, error) {
	session := s.session(ctx, neo4jdrv.AccessModeWrite)
	defer session.Close(ctx)

	// The transient `justCreated` flag distinguishes first creation from an
	// existing node without a separate read, keeping the upsert one statement.
	result, err := session.Run(ctx, `
		MERGE (u:User {username: $username})
		ON CREATE SET u.userId = $userId,
			u.name = $name,
			u.email = $email,
			u.bio = $bio,
			u.avatarUrl = $avatarUrl,
			u.passwordHash = $passwordHash,
			u.followersCount = 0,
			u.followingCount = 0,
			u.createdAt = datetime(),
			u.updatedAt = datetime(),
			u.justCreated = true
		WITH u, coalesce(u.justCreated, false) AS created
		REMOVE u.justCreated
		RETURN u, created
	`, map[string]any{
		"username":     u.Username,
		"userId":       u.ID,
		"name":         u.Name,
		"email":        u.Email,
		"bio":          u.Bio,
		"avatarUrl":    u.AvatarURL,
		"passwordHash": u.PasswordHash,
	})
	if err != nil {
		return nil, false, mapStoreErr(err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, false, mapStoreErr(err)
		}
		return nil, false, fmt.Errorf("%w: merge returned no record", entity.ErrStoreUnavailable)
	}
	record := result.Record()
	stored := userFromRecord(record, "u")
	created, _ := record.Get("created")
	wasCreated, _ := created.(bool)
	return stored, wasCreated, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	return s.getUserBy(ctx, "userId", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *Store) getUserBy(ctx context.Context, property, value string) (*entity.User, error) {
	session := s.session(ctx, neo4jdrv.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		fmt.Sprintf(`MATCH (u:User {%s: $value}) RETURN u`, property),
		map[string]any{"value": value})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if result.Next(ctx) {
		return userFromRecord(result.Record(), "u"), nil
	}
	if err := result.Err(); err != nil {
		return nil, mapStoreErr(err)
	}
	return nil, nil
}

// allowedFields whitelists the mutable User properties; anything else in the
// field map is a programming error and is rejected before query assembly.
var allowedFields = map[string]bool{
	"username":     true,
	"name":         true,
	"email":        true,
	"bio":          true,
	"avatarUrl":    true,
	"passwordHash": true,
}

func (s *Store) UpdateUserFields(ctx context.Context, id string, fields map[string]any) (*entity.User, error) {
	if len(fields) == 0 {
		return nil, entity.ErrNoFields
	}
	params := map[string]any{"id": id}
	assignments := make([]string, 0, len(fields)+1)
	for name, value := range fields {
		if !allowedFields[name] {
			return nil, fmt.Errorf("%w: unknown field %q", entity.ErrInvalidArgument, name)
		}
		assignments = append(assignments, fmt.Sprintf("u.%s = $%s", name, name))
		params[name] = value
	}
	sort.Strings(assignments) // deterministic statement text for query caching
	assignments = append(assignments, "u.updatedAt = datetime()")

	session := s.session(ctx, neo4jdrv.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (u:User {userId: $id}) SET `+strings.Join(assignments, ", ")+` RETURN u`,
		params)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if result.Next(ctx) {
		return userFromRecord(result.Record(), "u"), nil
	}
	if err := result.Err(); err != nil {
		return nil, mapStoreErr(err)
	}
	return nil, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	session := s.session(ctx, neo4jdrv.AccessModeWrite)
	defer session.Close(ctx)

	// Cascade in one statement: adjust both sides' counters, then detach.
	result, err := session.Run(ctx, `
		MATCH (u:User {userId: $id})
		OPTIONAL MATCH (u)-[:FOLLOWS]->(followee:User)
		SET followee.followersCount =
			CASE WHEN coalesce(followee.followersCount, 0) > 0 THEN followee.followersCount - 1 ELSE 0 END
		WITH DISTINCT u
		OPTIONAL MATCH (follower:User)-[:FOLLOWS]->(u)
		SET follower.followingCount =
			CASE WHEN coalesce(follower.followingCount, 0) > 0 THEN follower.followingCount - 1 ELSE 0 END
		WITH DISTINCT u
		DETACH DELETE u
		RETURN count(u) AS removed
	`, map[string]any{"id": id})
	if err != nil {
		return false, mapStoreErr(err)
	}
	if !result.Next(ctx) {
		return false, mapStoreErr(result.Err())
	}
	removed, _ := result.Record().Get("removed")
	n, _ := removed.(int64)
	return n > 0, nil
}

func (s *Store) UpsertFollow(ctx context.Context, followerUsername, followeeUsername string) (repository.FollowOutcome, error) {
	session := s.session(ctx, neo4jdrv.AccessModeWrite)
	defer session.Close(ctx)

	// MERGE locks both matched nodes, so concurrent calls on the same pair
	// serialize and the counters move exactly once per edge lifetime.
	result, err := session.Run(ctx, `
		MATCH (follower:User {username: $follower})
		MATCH (followee:User {username: $followee})
		MERGE (follower)-[r:FOLLOWS]->(followee)
		ON CREATE SET r.createdAt = datetime(),
			r.justCreated = true,
			follower.followingCount = coalesce(follower.followingCount, 0) + 1,
			followee.followersCount = coalesce(followee.followersCount, 0) + 1
		WITH r, coalesce(r.justCreated, false) AS created
		REMOVE r.justCreated
		RETURN created
	`, map[string]any{"follower": followerUsername, "followee": followeeUsername})
	if err != nil {
		return repository.FollowUserMissing, mapStoreErr(err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return repository.FollowUserMissing, mapStoreErr(err)
		}
		return repository.FollowUserMissing, nil
	}
	created, _ := result.Record().Get("created")
	if wasCreated, _ := created.(bool); wasCreated {
		return repository.FollowCreated, nil
	}
	return repository.FollowExists, nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerUsername, followeeUsername string) (bool, error) {
	session := s.session(ctx, neo4jdrv.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (follower:User {username: $follower})-[r:FOLLOWS]->(followee:User {username: $followee})
		DELETE r
		WITH follower, followee
		SET follower.followingCount =
			CASE WHEN coalesce(follower.followingCount, 0) > 0 THEN follower.followingCount - 1 ELSE 0 END,
			followee.followersCount =
			CASE WHEN coalesce(followee.followersCount, 0) > 0 THEN followee.followersCount - 1 ELSE 0 END
		RETURN true AS removed
	`, map[string]any{"follower": followerUsername, "followee": followeeUsername})
	if err != nil {
		return false, mapStoreErr(err)
	}
	if result.Next(ctx) {
		return true, nil
	}
	if err := result.Err(); err != nil {
		return false, mapStoreErr(err)
	}
	return false, nil
}

func (s *Store) Followers(ctx context.Context, username string, offset, limit int) ([]*entity.User, error) {
	return s.collectUsers(ctx, `
		MATCH (f:User)-[:FOLLOWS]->(:User {username: $username})
		RETURN f AS u
		ORDER BY u.username ASC
		SKIP $offset LIMIT $limit
	`, map[string]any{"username": username, "offset": offset, "limit": limit})
}

func (s *Store) Following(ctx context.Context, username string, offset, limit int) ([]*entity.User, error) {
	return s.collectUsers(ctx, `
		MATCH (:User {username: $username})-[:FOLLOWS]->(f:User)
		RETURN f AS u
		ORDER BY u.username ASC
		SKIP $offset LIMIT $limit
	`, map[string]any{"username": username, "offset": offset, "limit": limit})
}

func (s *Store) MutualConnections(ctx context.Context, usernameA, usernameB string) ([]*entity.User, error) {
	return s.collectUsers(ctx, `
		MATCH (:User {username: $a})-[:FOLLOWS]->(x:User)<-[:FOLLOWS]-(:User {username: $b})
		RETURN x AS u
		ORDER BY u.username ASC
	`, map[string]any{"a": usernameA, "b": usernameB})
}

func (s *Store) Recommendations(ctx context.Context, username string, limit int) ([]*entity.Recommendation, error) {
	session := s.session(ctx, neo4jdrv.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {username: $username})-[:FOLLOWS]->(friend:User)-[:FOLLOWS]->(candidate:User)
		WHERE candidate.username <> $username AND NOT (u)-[:FOLLOWS]->(candidate)
		RETURN candidate AS u, count(DISTINCT friend) AS strength
		ORDER BY strength DESC, u.username ASC
		LIMIT $limit
	`, map[string]any{"username": username, "limit": limit})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	var recs []*entity.Recommendation
	for result.Next(ctx) {
		record := result.Record()
		strength, _ := record.Get("strength")
		n, _ := strength.(int64)
		recs = append(recs, &entity.Recommendation{User: userFromRecord(record, "u"), Strength: int(n)})
	}
	if err := result.Err(); err != nil {
		return nil, mapStoreErr(err)
	}
	return recs, nil
}

func (s *Store) collectUsers(ctx context.Context, cypher string, params map[string]any) ([]*entity.User, error) {
	session := s.session(ctx, neo4jdrv.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	var users []*entity.User
	for result.Next(ctx) {
		users = append(users, userFromRecord(result.Record(), "u"))
	}
	if err := result.Err(); err != nil {
		return nil, mapStoreErr(err)
	}
	return users, nil
}

// mapStoreErr translates driver failures into the domain taxonomy. Schema
// errors (unique constraint races) become ErrConstraintViolation so the
// registry can retry the conflict as a lookup; everything else is treated
// as the store being unreachable.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var ne *db.Neo4jError
	if errors.As(err, &ne) && strings.HasPrefix(ne.Code, "Neo.ClientError.Schema.") {
		return fmt.Errorf("%w: %s", entity.ErrConstraintViolation, ne.Msg)
	}
	return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
}
