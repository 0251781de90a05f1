package neo4j

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
)

// userFromRecord extracts the node bound to key and maps it to the domain
// entity. Missing properties fall back to zero values so partially seeded
// nodes still round-trip.
func userFromRecord(record *db.Record, key string) *entity.User {
	value, ok := record.Get(key)
	if !ok {
		return nil
	}
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil
	}
	return userFromProps(node.Props)
}

func userFromProps(props map[string]any) *entity.User {
	return &entity.User{
		ID:             stringProp(props, "userId"),
		Username:       stringProp(props, "username"),
		Name:           stringProp(props, "name"),
		Email:          stringProp(props, "email"),
		Bio:            stringProp(props, "bio"),
		AvatarURL:      stringProp(props, "avatarUrl"),
		PasswordHash:   stringProp(props, "passwordHash"),
		FollowersCount: intProp(props, "followersCount"),
		FollowingCount: intProp(props, "followingCount"),
		CreatedAt:      timeProp(props, "createdAt"),
		UpdatedAt:      timeProp(props, "updatedAt"),
	}
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

// intProp clamps at zero: a counter must never surface negative even if the
// stored value was corrupted out of band.
func intProp(props map[string]any, key string) int {
	n, _ := props[key].(int64)
	if n < 0 {
		return 0
	}
	return int(n)
}

func timeProp(props map[string]any, key string) time.Time {
	t, _ := props[key].(time.Time)
	return t
}
