package model

import (
	"time"
)

// MaxCommentLength bounds comment content after sanitization.
const MaxCommentLength = 500

/*

Comment is a threaded comment on a feed entry

Id: primary key
CreatedAt: time when the comment was written
UserID: author
Username: author's handle snapshotted at write time. Deliberately not kept in
          sync with later profile renames, history shows the name as it was.
EntryGuid: guid of the feed entry this comment lives under
FeedUrl: url of the entry's feed
Content: sanitized text, at most MaxCommentLength characters
ParentID: parent comment for replies, nil for roots. A reply always shares
          its parent's EntryGuid.
LikeCount: denormalized count maintained by toggleCommentLike

*/
type Comment struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    string `gorm:"index"`
	Username  string
	EntryGuid string `gorm:"index"`
	FeedUrl   string
	Content   string
	ParentID  *string `gorm:"index"`
	LikeCount int
}
