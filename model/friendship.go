package model

import (
	"time"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

// Friendship relation statuses as seen from a particular user, used by the
// status queries. "none" and "self" never appear as row statuses.
const (
	RelationSelf     = "self"
	RelationNone     = "none"
	RelationPending  = "pending"
	RelationAccepted = "accepted"

	DirectionSent     = "sent"
	DirectionReceived = "received"
)

/*

Friendship is a directed request edge that becomes symmetric in meaning once
accepted

Id: primary key
CreatedAt: time when the request was sent
UpdatedAt: time of the last status transition
RequesterID: user who sent the request
RequesteeID: user who received the request
Status: pending or accepted

At most one row exists per unordered user pair, enforced by querying both
directions before insert. Self edges are rejected. deleteFriendship removes
the row for cancel, decline and unfriend alike.

*/
type Friendship struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RequesterID string           `gorm:"index;uniqueIndex:idx_friendships_pair"`
	RequesteeID string           `gorm:"index;uniqueIndex:idx_friendships_pair"`
	Status      FriendshipStatus `gorm:"type:varchar(16)"`
}
