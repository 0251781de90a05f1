package repository

import (
	"context"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
)

// FollowOutcome is the result of an UpsertFollow call against the store.
type FollowOutcome int

const (
	// FollowUserMissing means at least one endpoint does not exist; nothing changed.
	FollowUserMissing FollowOutcome = iota
	// FollowCreated means the edge was created and both counters were incremented.
	FollowCreated
	// FollowExists means the edge already existed; state and counters unchanged.
	FollowExists
)

// GraphStore is the persistence capability the services are written against.
// Implementations own all node and edge state; returned entities are
// transient snapshots with no back-reference into the store.
//
// Every edge mutation is an indivisible unit: the edge change and the two
// counter adjustments commit together or not at all. The Neo4j adapter
// relies on single-statement transactions, the in-memory adapter on a
// single critical section. No caching happens below this interface.
type GraphStore interface {
	// UpsertUser creates a User node keyed on username if absent and returns
	// (created user, true). If a node with the username already exists it is
	// returned unchanged with false. Counters start at zero on creation.
	UpsertUser(ctx context.Context, u *entity.User) (*entity.User, bool, error)

	// GetUserByID and GetUserByUsername are point lookups returning
	// (nil, nil) when the user is absent.
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)

	// UpdateUserFields applies the given property values to the node with
	// this id and returns the full updated record, or (nil, nil) if the id
	// is unknown. An empty field map fails with entity.ErrNoFields.
	UpdateUserFields(ctx context.Context, id string, fields map[string]any) (*entity.User, error)

	// DeleteUser removes the node, its incident Follows edges, and applies
	// the clamped counter decrement to every surviving endpoint, atomically.
	// Returns false when the id is unknown.
	DeleteUser(ctx context.Context, id string) (bool, error)

	// UpsertFollow creates the follower -> followee edge if absent,
	// incrementing followingCount on the follower and followersCount on the
	// followee only on first creation.
	UpsertFollow(ctx context.Context, followerUsername, followeeUsername string) (FollowOutcome, error)

	// DeleteFollow removes the edge if present, decrementing both counters
	// with a floor of zero. Returns false when the edge (or either user)
	// does not exist.
	DeleteFollow(ctx context.Context, followerUsername, followeeUsername string) (bool, error)

	// Followers returns users with an edge pointing at username, ordered by
	// username ascending, windowed by offset/limit. Following is symmetric
	// for edges originating at username. Bounds are validated by the caller.
	Followers(ctx context.Context, username string, offset, limit int) ([]*entity.User, error)
	Following(ctx context.Context, username string, offset, limit int) ([]*entity.User, error)

	// MutualConnections returns the intersection of both users' following
	// sets, ordered by username ascending for determinism.
	MutualConnections(ctx context.Context, usernameA, usernameB string) ([]*entity.User, error)

	// Recommendations returns up to limit two-hop candidates not already
	// followed by username, ranked by distinct-bridge count descending and
	// candidate username ascending.
	Recommendations(ctx context.Context, username string, limit int) ([]*entity.Recommendation, error)
}
