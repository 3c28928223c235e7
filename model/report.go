package model

import (
	"time"
)

// Accepted report reasons. Anything else is a validation error.
var ReportReasons = []string{"spam", "harassment", "misinformation", "explicit", "other"}

/*

Report is a user-filed complaint about an entry or a feed

Id: primary key
CreatedAt: time the report was filed
UserID: the reporting user
EntryGuid: reported entry, optional when a whole feed is reported
FeedUrl: reported feed, optional when a single entry is reported
Reason: one of ReportReasons
Details: optional free form elaboration

*/
type Report struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    string `gorm:"index"`
	EntryGuid string
	FeedUrl   string
	Reason    string
	Details   string
}
