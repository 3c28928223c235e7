package model

import (
	"time"
)

/*

Retweet marks a feed entry as re-shared by a user

Id: primary key
UserID: the retweeting user
EntryGuid: guid of the retweeted entry
FeedUrl: url of the entry's feed
Title, PubDate, Link: entry metadata snapshotted at retweet time so the
                      profile timeline renders without re-fetching the feed
RetweetedAt: time when the retweet happened

At most one row exists per (UserID, EntryGuid). The retweet mutation is a
toggle, rows are hard-deleted on un-retweet.

*/
type Retweet struct {
	Id          string `gorm:"primaryKey"`
	UserID      string `gorm:"index;uniqueIndex:idx_retweets_user_entry"`
	EntryGuid   string `gorm:"index;uniqueIndex:idx_retweets_user_entry"`
	FeedUrl     string
	Title       string
	PubDate     string
	Link        string
	RetweetedAt time.Time
}
