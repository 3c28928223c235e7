package api

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/utils"
)

func friendshipRows(t *testing.T, api *API, a string, b string) []model.Friendship {
	t.Helper()
	var rows []model.Friendship
	err := api.DB.Where(
		"(requester_id = ? AND requestee_id = ?) OR (requester_id = ? AND requestee_id = ?)",
		a, b, b, a,
	).Find(&rows).Error
	require.NoError(t, err)
	return rows
}

func TestFriendRequestLifecycle(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "friend_alice")
	bob := utils.TestCreateUser(t, db, "friend_bob")

	sent, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.NoError(t, err)
	require.NotEmpty(t, sent.FriendshipID)

	rows := friendshipRows(t, api, alice.Id, bob.Id)
	require.Len(t, rows, 1)
	assert.Equal(t, model.FriendshipStatusPending, rows[0].Status)
	assert.Equal(t, alice.Id, rows[0].RequesterID)

	// The requester cannot accept their own request.
	_, err = api.acceptFriendRequest(ctx, alice.Id, sent.FriendshipID)
	require.Error(t, err)
	assert.Equal(t, model.CategoryNotAuthorized, model.ClassifyError(err.Error()))

	accepted, err := api.acceptFriendRequest(ctx, bob.Id, sent.FriendshipID)
	require.NoError(t, err)
	assert.Equal(t, model.FriendshipStatusAccepted, accepted.Status)

	_, err = api.acceptFriendRequest(ctx, bob.Id, sent.FriendshipID)
	require.Error(t, err)
	assert.Equal(t, "Friend request already accepted", err.Error())

	// Either party can unfriend.
	deleted, err := api.deleteFriendship(ctx, alice.Id, sent.FriendshipID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionDeleted, deleted.Action)
	assert.Empty(t, friendshipRows(t, api, alice.Id, bob.Id))
}

func TestReciprocalRequestAutoAccepts(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "reciprocal_alice")
	bob := utils.TestCreateUser(t, db, "reciprocal_bob")

	first, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.NoError(t, err)

	second, err := api.sendFriendRequest(ctx, bob.Id, model.FriendRequestInput{RequesteeID: alice.Id})
	require.NoError(t, err)
	assert.Equal(t, first.FriendshipID, second.FriendshipID)

	rows := friendshipRows(t, api, alice.Id, bob.Id)
	require.Len(t, rows, 1)
	assert.Equal(t, model.FriendshipStatusAccepted, rows[0].Status)
	// The original direction survives the collapse.
	assert.Equal(t, alice.Id, rows[0].RequesterID)
}

func TestSendFriendRequestRejectsDuplicates(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "duplicate_alice")
	bob := utils.TestCreateUser(t, db, "duplicate_bob")

	_, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.NoError(t, err)

	_, err = api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.Error(t, err)
	assert.Equal(t, "Friend request already sent", err.Error())

	_, err = api.sendFriendRequest(ctx, bob.Id, model.FriendRequestInput{RequesteeID: alice.Id})
	require.NoError(t, err)
	_, err = api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.Error(t, err)
	assert.Equal(t, "You are already friends with this user", err.Error())

	require.Len(t, friendshipRows(t, api, alice.Id, bob.Id), 1)
}

func TestSendFriendRequestValidation(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "validation_alice")

	_, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{})
	require.Error(t, err)

	_, err = api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: alice.Id})
	require.Error(t, err)
	assert.Equal(t, "You cannot send a friend request to yourself", err.Error())

	_, err = api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: "no-such-user"})
	require.Error(t, err)
	assert.Equal(t, model.CategoryNotFound, model.ClassifyError(err.Error()))
}

func TestFriendRequestBurstLimit(t *testing.T) {
	api, db, now := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "burst_alice")

	var targets []*model.User
	for i := 0; i < 11; i++ {
		targets = append(targets, utils.TestCreateUser(t, db, fmt.Sprintf("burst_target_%d", i)))
	}

	for i := 0; i < 10; i++ {
		_, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: targets[i].Id})
		require.NoError(t, err)
	}

	_, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: targets[10].Id})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit exceeded: too many friend requests in a short period")

	// The refused attempt must not burn hourly tokens: 15 of 25 still fit.
	res, err := api.Limiter.Check(ctx, alice.Id, ratelimit.FriendsHourly, 15)
	require.NoError(t, err)
	assert.True(t, res.Ok)
	res, err = api.Limiter.Check(ctx, alice.Id, ratelimit.FriendsHourly, 16)
	require.NoError(t, err)
	assert.False(t, res.Ok)

	// Once the burst window rolls over the next request goes through.
	*now = now.Add(3 * time.Minute)
	_, err = api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: targets[10].Id})
	require.NoError(t, err)
}

func TestGetFriendshipStatusByUsername(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "status_alice")
	bob := utils.TestCreateUser(t, db, "status_bob")

	view, err := api.getFriendshipStatusByUsername(ctx, alice.Id, "status_bob")
	require.NoError(t, err)
	assert.True(t, view.Exists)
	assert.Equal(t, model.RelationNone, view.Status)
	assert.Equal(t, bob.Id, view.UserID)

	sent, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.NoError(t, err)

	view, err = api.getFriendshipStatusByUsername(ctx, alice.Id, "status_bob")
	require.NoError(t, err)
	assert.Equal(t, string(model.FriendshipStatusPending), view.Status)
	assert.Equal(t, model.DirectionSent, view.Direction)
	assert.Equal(t, sent.FriendshipID, view.FriendshipID)

	view, err = api.getFriendshipStatusByUsername(ctx, bob.Id, "status_alice")
	require.NoError(t, err)
	assert.Equal(t, model.DirectionReceived, view.Direction)

	view, err = api.getFriendshipStatusByUsername(ctx, alice.Id, "status_alice")
	require.NoError(t, err)
	assert.Equal(t, model.RelationSelf, view.Status)

	view, err = api.getFriendshipStatusByUsername(ctx, alice.Id, "status_nobody")
	require.NoError(t, err)
	assert.False(t, view.Exists)
	assert.Equal(t, model.RelationNone, view.Status)
}

func TestGetBatchFriendshipStatuses(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	me := utils.TestCreateUser(t, db, "batch_me")
	friend := utils.TestCreateUser(t, db, "batch_friend")
	pendingIn := utils.TestCreateUser(t, db, "batch_pending_in")
	stranger := utils.TestCreateUser(t, db, "batch_stranger")

	sent, err := api.sendFriendRequest(ctx, me.Id, model.FriendRequestInput{RequesteeID: friend.Id})
	require.NoError(t, err)
	_, err = api.acceptFriendRequest(ctx, friend.Id, sent.FriendshipID)
	require.NoError(t, err)
	_, err = api.sendFriendRequest(ctx, pendingIn.Id, model.FriendRequestInput{RequesteeID: me.Id})
	require.NoError(t, err)

	entries, err := api.getBatchFriendshipStatuses(ctx, me.Id,
		[]string{friend.Id, pendingIn.Id, stranger.Id, me.Id})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, string(model.FriendshipStatusAccepted), entries[0].Status)
	assert.Equal(t, model.DirectionSent, entries[0].Direction)
	assert.Equal(t, sent.FriendshipID, entries[0].FriendshipID)

	assert.Equal(t, string(model.FriendshipStatusPending), entries[1].Status)
	assert.Equal(t, model.DirectionReceived, entries[1].Direction)

	assert.Equal(t, model.RelationNone, entries[2].Status)
	assert.Empty(t, entries[2].FriendshipID)

	assert.Equal(t, model.RelationSelf, entries[3].Status)
}

func TestDeleteFriendshipAuthorization(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "delete_alice")
	bob := utils.TestCreateUser(t, db, "delete_bob")
	carol := utils.TestCreateUser(t, db, "delete_carol")

	sent, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.NoError(t, err)

	_, err = api.deleteFriendship(ctx, carol.Id, sent.FriendshipID)
	require.Error(t, err)
	assert.Equal(t, model.CategoryNotAuthorized, model.ClassifyError(err.Error()))

	// Declining a pending request is the same delete, from the requestee.
	_, err = api.deleteFriendship(ctx, bob.Id, sent.FriendshipID)
	require.NoError(t, err)

	_, err = api.deleteFriendship(ctx, bob.Id, sent.FriendshipID)
	require.Error(t, err)
	assert.Equal(t, model.CategoryNotFound, model.ClassifyError(err.Error()))
}
