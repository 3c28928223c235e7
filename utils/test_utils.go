package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
)

// TestCreateUser seeds a user row and returns it. The password hash is left
// empty, sign-in paths are exercised through the signUp mutation instead.
func TestCreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := model.User{
		Id:       uuid.New().String(),
		Username: username,
		Name:     username,
		RssKeys:  pq.StringArray{},
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// TestCreateFollowing seeds a following row aged by age, so cooldown and
// window checks can be exercised without sleeping through them.
func TestCreateFollowing(t *testing.T, db *gorm.DB, userID string, postID string, feedUrl string, age time.Duration) *model.Following {
	t.Helper()
	following := model.Following{
		Id:        uuid.New().String(),
		CreatedAt: time.Now().Add(-age),
		UserID:    userID,
		PostID:    postID,
		FeedUrl:   feedUrl,
	}
	require.NoError(t, db.Create(&following).Error)
	return &following
}

// TestCreateComment seeds a comment row directly, bypassing limiter and
// validation.
func TestCreateComment(t *testing.T, db *gorm.DB, user *model.User, entryGuid string, content string, parentID *string) *model.Comment {
	t.Helper()
	comment := model.Comment{
		Id:        uuid.New().String(),
		UserID:    user.Id,
		Username:  user.Username,
		EntryGuid: entryGuid,
		FeedUrl:   "https://example.com/rss",
		Content:   content,
		ParentID:  parentID,
	}
	require.NoError(t, db.Create(&comment).Error)
	return &comment
}

// TestBackdateFollowings ages every following row of the user past the
// given duration, clearing follow cooldowns in tests.
func TestBackdateFollowings(t *testing.T, db *gorm.DB, userID string, age time.Duration) {
	t.Helper()
	err := db.Model(&model.Following{}).Where("user_id = ?", userID).
		Update("created_at", time.Now().Add(-age)).Error
	require.NoError(t, err)
}
