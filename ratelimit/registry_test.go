package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	def, err := Lookup(CommentsBurst)
	require.NoError(t, err)
	require.Equal(t, 5, def.Rate)
	require.Equal(t, 30*time.Second, def.Period)
	require.Equal(t, TierBurst, def.Tier)

	_, err = Lookup("nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown rate limiter")
}

func TestTierGroupsResolve(t *testing.T) {
	groups := [][]string{LikesTiers, FollowingTiers, FriendsTiers, CommentsTiers, RetweetsTiers}
	for _, group := range groups {
		require.Len(t, group, 3)
		wantTiers := []string{TierBurst, TierHourly, TierDaily}
		for i, name := range group {
			def, err := Lookup(name)
			require.NoError(t, err)
			require.Equal(t, wantTiers[i], def.Tier, name)
		}
	}
}

func TestRefusalErrorNamesTierAndWait(t *testing.T) {
	def, err := Lookup(CommentsBurst)
	require.NoError(t, err)
	msg := def.RefusalError(18 * time.Second).Error()
	require.Equal(t, "Rate limit exceeded: too many comments in a short period. Please wait 18 seconds.", msg)

	def, err = Lookup(FriendsHourly)
	require.NoError(t, err)
	require.Contains(t, def.RefusalError(time.Minute).Error(), "too many friend requests this hour")

	def, err = Lookup(Chat)
	require.NoError(t, err)
	require.Contains(t, def.RefusalError(time.Hour).Error(), "too many messages today")

	// Sub-second waits round up instead of telling users to wait 0 seconds.
	def, err = Lookup(CommentsBurst)
	require.NoError(t, err)
	require.Contains(t, def.RefusalError(1500*time.Millisecond).Error(), "wait 2 seconds")
}

func TestLimitedBy(t *testing.T) {
	def, err := Lookup(LikesBurst)
	require.NoError(t, err)
	require.Equal(t, LikesBurst, LimitedBy(def.RefusalError(time.Second)))
	require.Equal(t, "", LimitedBy(errors.New("something else")))
	require.Equal(t, "", LimitedBy(nil))
}
