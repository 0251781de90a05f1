package mailer

import "time"

// FollowerNotificationJob is the JSON payload queued on RabbitMQ when a
// follow edge is first created. The notify worker renders it into a
// "you have a new follower" email.
type FollowerNotificationJob struct {
	To               string    `json:"to"`
	FolloweeName     string    `json:"followee_name"`
	FollowerUsername string    `json:"follower_username"`
	FollowerName     string    `json:"follower_name"`
	FollowedAt       time.Time `json:"followed_at"`
}
