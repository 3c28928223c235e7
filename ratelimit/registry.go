package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	TierBurst  = "burst"
	TierHourly = "hourly"
	TierDaily  = "daily"
)

// Limiter names. Mutations consume the tiers of their feature in order,
// burst first.
const (
	LikesBurst  = "likesBurst"
	LikesHourly = "likesHourly"
	LikesDaily  = "likesDaily"

	FollowingBurst  = "followingBurst"
	FollowingHourly = "followingHourly"
	FollowingDaily  = "followingDaily"

	FriendsBurst  = "friendsBurst"
	FriendsHourly = "friendsHourly"
	FriendsDaily  = "friendsDaily"

	CommentsBurst  = "commentsBurst"
	CommentsHourly = "commentsHourly"
	CommentsDaily  = "commentsDaily"

	RetweetsBurst  = "retweetsBurst"
	RetweetsHourly = "retweetsHourly"
	RetweetsDaily  = "retweetsDaily"

	Chat             = "chat"
	ProfileUpdate    = "profileUpdate"
	ReportsDaily     = "reportsDaily"
	SubmissionsDaily = "submissionsDaily"
)

var (
	LikesTiers    = []string{LikesBurst, LikesHourly, LikesDaily}
	FriendsTiers  = []string{FriendsBurst, FriendsHourly, FriendsDaily}
	CommentsTiers = []string{CommentsBurst, CommentsHourly, CommentsDaily}
	RetweetsTiers = []string{RetweetsBurst, RetweetsHourly, RetweetsDaily}

	// Follow counts its windows off the followings table directly, these
	// definitions only supply the window sizes.
	FollowingTiers = []string{FollowingBurst, FollowingHourly, FollowingDaily}
)

/*
Definition describes one named fixed-window limiter. Rate tokens fit inside
each Period long window, the window resets when it elapses. Noun and Tier
feed the refusal message shown to users.
*/
type Definition struct {
	Name   string
	Rate   int
	Period time.Duration
	Tier   string
	Noun   string
}

var registry = map[string]Definition{
	LikesBurst:  {LikesBurst, 5, 30 * time.Second, TierBurst, "likes"},
	LikesHourly: {LikesHourly, 50, time.Hour, TierHourly, "likes"},
	LikesDaily:  {LikesDaily, 200, 24 * time.Hour, TierDaily, "likes"},

	FollowingBurst:  {FollowingBurst, 10, time.Minute, TierBurst, "follows"},
	FollowingHourly: {FollowingHourly, 50, time.Hour, TierHourly, "follows"},
	FollowingDaily:  {FollowingDaily, 200, 24 * time.Hour, TierDaily, "follows"},

	FriendsBurst:  {FriendsBurst, 10, 2 * time.Minute, TierBurst, "friend requests"},
	FriendsHourly: {FriendsHourly, 25, time.Hour, TierHourly, "friend requests"},
	FriendsDaily:  {FriendsDaily, 75, 24 * time.Hour, TierDaily, "friend requests"},

	CommentsBurst:  {CommentsBurst, 5, 30 * time.Second, TierBurst, "comments"},
	CommentsHourly: {CommentsHourly, 20, time.Hour, TierHourly, "comments"},
	CommentsDaily:  {CommentsDaily, 100, 24 * time.Hour, TierDaily, "comments"},

	RetweetsBurst:  {RetweetsBurst, 3, 30 * time.Second, TierBurst, "retweets"},
	RetweetsHourly: {RetweetsHourly, 25, time.Hour, TierHourly, "retweets"},
	RetweetsDaily:  {RetweetsDaily, 100, 24 * time.Hour, TierDaily, "retweets"},

	Chat:             {Chat, 50, 24 * time.Hour, TierDaily, "messages"},
	ProfileUpdate:    {ProfileUpdate, 3, 24 * time.Hour, TierDaily, "profile updates"},
	ReportsDaily:     {ReportsDaily, 5, 24 * time.Hour, TierDaily, "reports"},
	SubmissionsDaily: {SubmissionsDaily, 3, 24 * time.Hour, TierDaily, "feed submissions"},
}

// Lookup resolves a limiter name. An unknown name is a programming error at
// the call site, not user input.
func Lookup(name string) (Definition, error) {
	def, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown rate limiter: %s", name)
	}
	return def, nil
}

/*
TierError is the refusal of one exhausted tier. Its message names the tier
and the wait because clients match on the "Rate limit exceeded" prefix, while
metrics pull the refusing limiter out of Definition.
*/
type TierError struct {
	Definition Definition
	RetryAfter time.Duration
}

func (e *TierError) Error() string {
	phrase := ""
	switch e.Definition.Tier {
	case TierBurst:
		phrase = "in a short period"
	case TierHourly:
		phrase = "this hour"
	default:
		phrase = "today"
	}
	secs := int64(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("Rate limit exceeded: too many %s %s. Please wait %d seconds.", e.Definition.Noun, phrase, secs)
}

// RefusalError wraps an exhausted attempt into the user-facing error.
func (d Definition) RefusalError(retryAfter time.Duration) error {
	return &TierError{Definition: d, RetryAfter: retryAfter}
}

// LimitedBy returns the name of the limiter that refused err, or "" when err
// is not a refusal.
func LimitedBy(err error) string {
	var tierErr *TierError
	if errors.As(err, &tierErr) {
		return tierErr.Definition.Name
	}
	return ""
}
