package model

import (
	"time"
)

/*

CommentLike is a "many-to-many" relation of user likes a comment

UserID: user id
CommentID: comment id
CreatedAt: time when relation is created

Toggled by toggleCommentLike, which also maintains Comment.LikeCount inside
the same transaction.

*/
type CommentLike struct {
	UserID    string `gorm:"primaryKey"`
	CommentID string `gorm:"primaryKey;index"`
	CreatedAt time.Time
}
