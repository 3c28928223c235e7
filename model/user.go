package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

/*

User is a data model for a registered account

Id: primary key, use to identify a user
CreatedAt: time when entity is created
UpdatedAt: time when entity is last patched
DeletedAt: time when entity is deleted, users are never hard-deleted

Username: unique handle chosen at sign up, lower case
PasswordHash: bcrypt hash, never serialized
Name: optional display name
Bio: optional free form text, capped at profile update time
ProfileImage: optional avatar url
RssKeys: keys of the feeds this user follows, appended by follow and removed
         by unfollow

*/
type User struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
	Name         string
	Bio          string
	ProfileImage string
	RssKeys      pq.StringArray `gorm:"type:text[]"`
}

// UserDisplay is the lightweight projection attached to comments and profile
// reads. Never expose the full User row to other users.
type UserDisplay struct {
	Username     string `json:"username"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
}
