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

func commentCount(t *testing.T, api *API, entryGuid string) int64 {
	t.Helper()
	var count int64
	err := api.DB.Model(&model.Comment{}).Where("entry_guid = ?", entryGuid).Count(&count).Error
	require.NoError(t, err)
	return count
}

func TestAddCommentAndThreading(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	author := utils.TestCreateUser(t, db, "comment_author")
	replier := utils.TestCreateUser(t, db, "comment_replier")

	first, err := api.addComment(ctx, author.Id, model.AddCommentInput{
		EntryGuid: "entry-1", FeedUrl: "https://a.com/rss", Content: "first",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ActionCreated, first.Action)
	require.NotEmpty(t, first.CommentID)

	second, err := api.addComment(ctx, author.Id, model.AddCommentInput{
		EntryGuid: "entry-1", FeedUrl: "https://a.com/rss", Content: "second",
	})
	require.NoError(t, err)

	reply, err := api.addComment(ctx, replier.Id, model.AddCommentInput{
		EntryGuid: "entry-1", FeedUrl: "https://a.com/rss", Content: "a reply",
		ParentID: &first.CommentID,
	})
	require.NoError(t, err)

	// Top level listing excludes replies and orders by creation time.
	views, err := api.getComments(ctx, "entry-1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, first.CommentID, views[0].Id)
	assert.Equal(t, second.CommentID, views[1].Id)
	assert.Equal(t, "comment_author", views[0].User.Username)

	replies, err := api.getCommentReplies(ctx, first.CommentID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.CommentID, replies[0].Id)
	assert.Equal(t, "comment_replier", replies[0].User.Username)

	none, err := api.getCommentReplies(ctx, second.CommentID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAddCommentValidation(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	user := utils.TestCreateUser(t, db, "comment_validation_user")

	_, err := api.addComment(ctx, user.Id, model.AddCommentInput{Content: "no entry"})
	require.Error(t, err)

	_, err = api.addComment(ctx, user.Id, model.AddCommentInput{EntryGuid: "entry-1", Content: "  \n\t "})
	require.Error(t, err)
	assert.Equal(t, "Comment cannot be empty", err.Error())

	_, err = api.addComment(ctx, user.Id, model.AddCommentInput{
		EntryGuid: "entry-1", Content: strings.Repeat("x", model.MaxCommentLength+1),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Comment is too long")

	missing := "no-such-comment"
	_, err = api.addComment(ctx, user.Id, model.AddCommentInput{
		EntryGuid: "entry-1", Content: "orphan reply", ParentID: &missing,
	})
	require.Error(t, err)
	assert.Equal(t, "Parent comment not found", err.Error())

	parent := utils.TestCreateComment(t, db, user, "entry-1", "parent", nil)
	_, err = api.addComment(ctx, user.Id, model.AddCommentInput{
		EntryGuid: "entry-2", Content: "cross entry reply", ParentID: &parent.Id,
	})
	require.Error(t, err)
	assert.Equal(t, "Parent comment belongs to a different entry", err.Error())

	// Rejected attempts roll their tokens back with the transaction.
	res, err := api.Limiter.Check(ctx, user.Id, ratelimit.CommentsBurst, 5)
	require.NoError(t, err)
	assert.True(t, res.Ok)
}

func TestAddCommentBurstLimit(t *testing.T) {
	api, db, now := newTestAPI(t)
	ctx := context.Background()
	user := utils.TestCreateUser(t, db, "comment_burst_user")

	for i := 0; i < 5; i++ {
		_, err := api.addComment(ctx, user.Id, model.AddCommentInput{
			EntryGuid: "entry-1", Content: "spam spam spam",
		})
		require.NoError(t, err)
	}

	_, err := api.addComment(ctx, user.Id, model.AddCommentInput{
		EntryGuid: "entry-1", Content: "one too many",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit exceeded: too many comments in a short period")
	assert.Equal(t, ratelimit.CommentsBurst, ratelimit.LimitedBy(err))
	assert.Equal(t, int64(5), commentCount(t, api, "entry-1"))

	*now = now.Add(31 * time.Second)
	_, err = api.addComment(ctx, user.Id, model.AddCommentInput{
		EntryGuid: "entry-1", Content: "after the window",
	})
	require.NoError(t, err)
}

func TestDeleteCommentSubtree(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	author := utils.TestCreateUser(t, db, "subtree_author")
	liker := utils.TestCreateUser(t, db, "subtree_liker")

	root := utils.TestCreateComment(t, db, author, "entry-1", "root", nil)
	childA := utils.TestCreateComment(t, db, author, "entry-1", "child a", &root.Id)
	childB := utils.TestCreateComment(t, db, author, "entry-1", "child b", &root.Id)
	grandchild := utils.TestCreateComment(t, db, author, "entry-1", "grandchild", &childA.Id)
	bystander := utils.TestCreateComment(t, db, liker, "entry-1", "unrelated", nil)

	_, err := api.toggleCommentLike(ctx, liker.Id, childB.Id)
	require.NoError(t, err)

	_, err = api.deleteComment(ctx, liker.Id, root.Id)
	require.Error(t, err)
	assert.Equal(t, model.CategoryNotAuthorized, model.ClassifyError(err.Error()))

	result, err := api.deleteComment(ctx, author.Id, root.Id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 4, result.Deleted)

	// Only the bystander's comment survives, with no orphaned rows.
	var remaining []model.Comment
	require.NoError(t, db.Where("entry_guid = ?", "entry-1").Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, bystander.Id, remaining[0].Id)

	var likes int64
	require.NoError(t, db.Model(&model.CommentLike{}).
		Where("comment_id IN ?", []string{root.Id, childA.Id, childB.Id, grandchild.Id}).
		Count(&likes).Error)
	assert.Equal(t, int64(0), likes)

	_, err = api.deleteComment(ctx, author.Id, root.Id)
	require.Error(t, err)
	assert.Equal(t, "Comment not found", err.Error())
}

func TestToggleCommentLike(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	author := utils.TestCreateUser(t, db, "like_author")
	liker := utils.TestCreateUser(t, db, "like_liker")
	comment := utils.TestCreateComment(t, db, author, "entry-1", "likeable", nil)

	liked, err := api.toggleCommentLike(ctx, liker.Id, comment.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ActionLiked, liked.Action)
	assert.Equal(t, 1, liked.LikeCount)

	status, err := api.getCommentLikeStatus(ctx, liker.Id, comment.Id)
	require.NoError(t, err)
	assert.True(t, status.IsLiked)
	assert.Equal(t, 1, status.Count)

	// The author sees the count without the liked flag.
	status, err = api.getCommentLikeStatus(ctx, author.Id, comment.Id)
	require.NoError(t, err)
	assert.False(t, status.IsLiked)
	assert.Equal(t, 1, status.Count)

	unliked, err := api.toggleCommentLike(ctx, liker.Id, comment.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ActionUnliked, unliked.Action)
	assert.Equal(t, 0, unliked.LikeCount)

	status, err = api.getCommentLikeStatus(ctx, liker.Id, comment.Id)
	require.NoError(t, err)
	assert.False(t, status.IsLiked)
	assert.Equal(t, 0, status.Count)

	_, err = api.toggleCommentLike(ctx, liker.Id, "no-such-comment")
	require.Error(t, err)
	assert.Equal(t, "Comment not found", err.Error())
}

func TestUnlikeNeverGoesNegative(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	author := utils.TestCreateUser(t, db, "floor_author")
	liker := utils.TestCreateUser(t, db, "floor_liker")
	comment := utils.TestCreateComment(t, db, author, "entry-1", "drifted", nil)

	// A like row without a matching counter, as left by an older data bug.
	require.NoError(t, db.Create(&model.CommentLike{UserID: liker.Id, CommentID: comment.Id}).Error)

	unliked, err := api.toggleCommentLike(ctx, liker.Id, comment.Id)
	require.NoError(t, err)
	assert.Equal(t, model.ActionUnliked, unliked.Action)
	assert.Equal(t, 0, unliked.LikeCount)
}

func TestLikeBurstOnlyMetersCreation(t *testing.T) {
	api, db, now := newTestAPI(t)
	ctx := context.Background()
	author := utils.TestCreateUser(t, db, "like_burst_author")
	liker := utils.TestCreateUser(t, db, "like_burst_liker")

	var comments []*model.Comment
	for i := 0; i < 6; i++ {
		comments = append(comments, utils.TestCreateComment(t, db, author, "entry-1", "c", nil))
	}

	for i := 0; i < 5; i++ {
		_, err := api.toggleCommentLike(ctx, liker.Id, comments[i].Id)
		require.NoError(t, err)
	}

	_, err := api.toggleCommentLike(ctx, liker.Id, comments[5].Id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit exceeded: too many likes in a short period")

	// Unliking stays open even with the burst tier exhausted.
	unliked, err := api.toggleCommentLike(ctx, liker.Id, comments[0].Id)
	require.NoError(t, err)
	assert.Equal(t, model.ActionUnliked, unliked.Action)

	*now = now.Add(31 * time.Second)
	relike, err := api.toggleCommentLike(ctx, liker.Id, comments[5].Id)
	require.NoError(t, err)
	assert.Equal(t, model.ActionLiked, relike.Action)
}

func TestBatchGetCommentLikeStatuses(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	author := utils.TestCreateUser(t, db, "batch_like_author")
	me := utils.TestCreateUser(t, db, "batch_like_me")
	other := utils.TestCreateUser(t, db, "batch_like_other")

	mine := utils.TestCreateComment(t, db, author, "entry-1", "mine", nil)
	theirs := utils.TestCreateComment(t, db, author, "entry-1", "theirs", nil)
	cold := utils.TestCreateComment(t, db, author, "entry-1", "cold", nil)

	_, err := api.toggleCommentLike(ctx, me.Id, mine.Id)
	require.NoError(t, err)
	_, err = api.toggleCommentLike(ctx, other.Id, mine.Id)
	require.NoError(t, err)
	_, err = api.toggleCommentLike(ctx, other.Id, theirs.Id)
	require.NoError(t, err)

	statuses, err := api.batchGetCommentLikeStatuses(ctx, me.Id,
		[]string{mine.Id, theirs.Id, cold.Id, "no-such-comment"})
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, model.CommentLikeStatus{IsLiked: true, Count: 2}, statuses[mine.Id])
	assert.Equal(t, model.CommentLikeStatus{IsLiked: false, Count: 1}, statuses[theirs.Id])
	assert.Equal(t, model.CommentLikeStatus{IsLiked: false, Count: 0}, statuses[cold.Id])
	_, ok := statuses["no-such-comment"]
	assert.False(t, ok)
}

func TestBatchGetComments(t *testing.T) {
	api, db, _ := newTestAPI(t)
	ctx := context.Background()
	author := utils.TestCreateUser(t, db, "batch_comments_author")

	one := utils.TestCreateComment(t, db, author, "entry-1", "on one", nil)
	utils.TestCreateComment(t, db, author, "entry-1", "a reply", &one.Id)
	utils.TestCreateComment(t, db, author, "entry-2", "on two", nil)

	byGuid, err := api.batchGetComments(ctx, []string{"entry-1", "entry-2", "entry-3"})
	require.NoError(t, err)
	require.Len(t, byGuid, 3)

	require.Len(t, byGuid["entry-1"], 1)
	assert.Equal(t, one.Id, byGuid["entry-1"][0].Id)
	assert.Len(t, byGuid["entry-2"], 1)
	// Entries without comments still answer with an empty list.
	assert.NotNil(t, byGuid["entry-3"])
	assert.Empty(t, byGuid["entry-3"])
}
