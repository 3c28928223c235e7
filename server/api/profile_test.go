package api

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/utils"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfilePatchesOnlySentFields(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	user := utils.TestCreateUser(t, db, "profile_user")

	view, err := api.updateProfile(ctx, user.Id, model.UpdateProfileInput{
		Name:         strPtr("Display Name"),
		Bio:          strPtr("a bio"),
		ProfileImage: strPtr("https://img.example.com/me.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Display Name", view.Name)
	assert.Equal(t, "a bio", view.Bio)
	assert.Equal(t, "https://img.example.com/me.png", view.ProfileImage)

	// A bio-only patch leaves the other fields alone.
	view, err = api.updateProfile(ctx, user.Id, model.UpdateProfileInput{Bio: strPtr("new bio")})
	require.NoError(t, err)
	assert.Equal(t, "Display Name", view.Name)
	assert.Equal(t, "new bio", view.Bio)
	assert.Equal(t, "https://img.example.com/me.png", view.ProfileImage)

	// An explicit empty string clears the image.
	view, err = api.updateProfile(ctx, user.Id, model.UpdateProfileInput{ProfileImage: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", view.ProfileImage)
	assert.Equal(t, "new bio", view.Bio)
}

func TestUpdateProfileValidation(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	user := utils.TestCreateUser(t, db, "profile_validation_user")

	_, err := api.updateProfile(ctx, user.Id, model.UpdateProfileInput{})
	require.Error(t, err)
	assert.Equal(t, "Nothing to update", err.Error())

	_, err = api.updateProfile(ctx, user.Id, model.UpdateProfileInput{Name: strPtr("   ")})
	require.Error(t, err)
	assert.Equal(t, "Name cannot be empty", err.Error())

	_, err = api.updateProfile(ctx, user.Id, model.UpdateProfileInput{
		Name: strPtr(strings.Repeat("n", maxNameLength+1)),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name is too long")

	_, err = api.updateProfile(ctx, user.Id, model.UpdateProfileInput{
		Bio: strPtr(strings.Repeat("b", maxBioLength+1)),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bio is too long")

	_, err = api.updateProfile(ctx, user.Id, model.UpdateProfileInput{
		ProfileImage: strPtr("notaurl"),
	})
	require.Error(t, err)
	assert.Equal(t, "Profile image must be a valid URL", err.Error())

	// Every rejection rolled its token back with the transaction.
	res, err := api.Limiter.Check(ctx, user.Id, ratelimit.ProfileUpdate, 3)
	require.NoError(t, err)
	assert.True(t, res.Ok)
}

func TestUpdateProfileDailyLimit(t *testing.T) {
	api, db, now := newTestAPI(t)
	ctx := context.Background()
	user := utils.TestCreateUser(t, db, "profile_limit_user")

	for i := 0; i < 3; i++ {
		_, err := api.updateProfile(ctx, user.Id, model.UpdateProfileInput{Bio: strPtr("bio")})
		require.NoError(t, err)
	}

	_, err := api.updateProfile(ctx, user.Id, model.UpdateProfileInput{Bio: strPtr("bio")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit exceeded: too many profile updates today")

	*now = now.Add(25 * time.Hour)
	_, err = api.updateProfile(ctx, user.Id, model.UpdateProfileInput{Bio: strPtr("fresh day")})
	require.NoError(t, err)
}

func TestGetProfileByUsername(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	alice := utils.TestCreateUser(t, db, "profile_alice")
	bob := utils.TestCreateUser(t, db, "profile_bob")

	_, err := api.sendFriendRequest(ctx, alice.Id, model.FriendRequestInput{RequesteeID: bob.Id})
	require.NoError(t, err)

	result, err := api.getProfileByUsername(ctx, alice.Id, "profile_bob")
	require.NoError(t, err)
	assert.Equal(t, bob.Id, result.Profile.UserID)
	assert.Equal(t, "profile_bob", result.Profile.Username)
	require.NotNil(t, result.Friendship)
	assert.Equal(t, string(model.FriendshipStatusPending), result.Friendship.Status)
	assert.Equal(t, model.DirectionSent, result.Friendship.Direction)

	own, err := api.getProfileByUsername(ctx, alice.Id, "profile_alice")
	require.NoError(t, err)
	require.NotNil(t, own.Friendship)
	assert.Equal(t, model.RelationSelf, own.Friendship.Status)

	_, err = api.getProfileByUsername(ctx, alice.Id, "profile_nobody")
	require.Error(t, err)
	assert.Equal(t, "User not found", err.Error())
}
