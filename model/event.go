package model

// EventType names a committed mutation on the event bus.
type EventType string

const (
	EventFollowed       EventType = "follow.followed"
	EventUnfollowed     EventType = "follow.unfollowed"
	EventFriendRequest  EventType = "friend.requested"
	EventFriendAccepted EventType = "friend.accepted"
	EventFriendDeleted  EventType = "friend.deleted"
	EventCommentCreated EventType = "comment.created"
	EventCommentDeleted EventType = "comment.deleted"
	EventCommentLiked   EventType = "comment.liked"
	EventRetweeted      EventType = "retweet.retweeted"
	EventUnretweeted    EventType = "retweet.unretweeted"
)

// Event is the bus payload published by mutation handlers after commit.
// ActorID is always set. TargetUserID is the other party of a relationship
// mutation, empty when the mutation only concerns the actor. EntryGuid is set
// for entry-scoped mutations so entry viewers can be invalidated.
type Event struct {
	Type         EventType `json:"type"`
	ActorID      string    `json:"actorId"`
	TargetUserID string    `json:"targetUserId,omitempty"`
	EntryGuid    string    `json:"entryGuid,omitempty"`
	LimitedBy    string    `json:"limitedBy,omitempty"`
}
