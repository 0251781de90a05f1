package entity

import (
	"time"
)

// User is the aggregate root for the social graph domain.
// PasswordHash holds a bcrypt hash and must never reach display layers.
//
// FollowersCount and FollowingCount are denormalized: they mirror the
// number of Follows edges ending at / starting from this user and are
// maintained by the store inside the same atomic unit as the edge mutation.
type User struct {
	ID             string    `json:"userId"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	PasswordHash   string    `json:"-"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Recommendation pairs a candidate user with the number of distinct
// intermediate friends bridging the requesting user to the candidate.
type Recommendation struct {
	User     *User `json:"user"`
	Strength int   `json:"strength"`
}
