package model

import (
	"time"
)

/*

Following represents "user follows the feed behind a post"

Id: primary key
CreatedAt: time when the follow happened, also drives the follow cooldowns
UserID: the follower
PostID: the followed post (a followable publication page)
FeedUrl: url of the post's backing feed

At most one row exists per (UserID, PostID). Rows are hard-deleted on
unfollow, there is no soft-delete state for a follow edge.

*/
type Following struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    string `gorm:"index;uniqueIndex:idx_followings_user_post"`
	PostID    string `gorm:"index;uniqueIndex:idx_followings_user_post"`
	FeedUrl   string
}
