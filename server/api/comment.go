package api

import (
	"context"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/utils"
)

func (api *API) addComment(ctx context.Context, userID string, input model.AddCommentInput) (*model.AddCommentResult, error) {
	if input.EntryGuid == "" {
		return nil, errors.New("entryGuid is required")
	}

	var result *model.AddCommentResult
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := api.Limiter.Within(tx).ConsumeTiers(ctx, userID, ratelimit.CommentsTiers...); err != nil {
			return err
		}

		content := sanitizeContent(input.Content)
		if content == "" {
			return errors.New("Comment cannot be empty")
		}
		if utf8.RuneCountInString(content) > model.MaxCommentLength {
			return fmt.Errorf("Comment is too long (max %d characters)", model.MaxCommentLength)
		}

		user, err := getUserById(tx, userID)
		if err != nil {
			return err
		}

		if input.ParentID != nil && *input.ParentID != "" {
			var parent model.Comment
			findErr := tx.Where("id = ?", *input.ParentID).First(&parent).Error
			if findErr == gorm.ErrRecordNotFound {
				return errNotFound("Parent comment")
			}
			if findErr != nil {
				return errors.Wrap(findErr, "failed to load parent comment")
			}
			// No grafting replies onto another entry's thread.
			if parent.EntryGuid != input.EntryGuid {
				return errors.New("Parent comment belongs to a different entry")
			}
		}

		comment := model.Comment{
			Id:        uuid.New().String(),
			UserID:    userID,
			Username:  user.Username,
			EntryGuid: input.EntryGuid,
			FeedUrl:   input.FeedUrl,
			Content:   content,
			ParentID:  input.ParentID,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return errors.Wrap(err, "failed to create comment")
		}
		result = &model.AddCommentResult{Action: model.ActionCreated, CommentID: comment.Id}
		return nil
	})
	if err != nil {
		api.publishRejected(model.EventCommentCreated, userID, err)
		return nil, err
	}
	api.publish(model.Event{Type: model.EventCommentCreated, ActorID: userID, EntryGuid: input.EntryGuid})
	return result, nil
}

func (api *API) deleteComment(ctx context.Context, userID string, commentID string) (*model.DeleteCommentResult, error) {
	if commentID == "" {
		return nil, errors.New("commentId is required")
	}

	var deleted int
	var entryGuid string
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		findErr := tx.Where("id = ?", commentID).First(&comment).Error
		if findErr == gorm.ErrRecordNotFound {
			return errNotFound("Comment")
		}
		if findErr != nil {
			return errors.Wrap(findErr, "failed to load comment")
		}
		if comment.UserID != userID {
			return errNotAuthorized("delete this comment")
		}
		entryGuid = comment.EntryGuid

		ids, err := collectSubtree(tx, comment.Id)
		if err != nil {
			return err
		}
		for _, chunk := range utils.ChunkStrings(ids, queryChunkSize) {
			if err := tx.Where("comment_id IN ?", chunk).Delete(&model.CommentLike{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete comment likes")
			}
			if err := tx.Where("id IN ?", chunk).Delete(&model.Comment{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete comments")
			}
		}
		deleted = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}
	api.publish(model.Event{Type: model.EventCommentDeleted, ActorID: userID, EntryGuid: entryGuid})
	return &model.DeleteCommentResult{Success: true, Deleted: deleted}, nil
}

// collectSubtree walks the reply tree with an explicit stack. Reply chains
// have no depth cap, so the walk must not recurse.
func collectSubtree(tx *gorm.DB, rootID string) ([]string, error) {
	ids := []string{rootID}
	stack := []string{rootID}
	for len(stack) > 0 {
		parentID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var children []model.Comment
		if err := tx.Select("id").Where("parent_id = ?", parentID).Find(&children).Error; err != nil {
			return nil, errors.Wrap(err, "failed to load comment replies")
		}
		for _, child := range children {
			ids = append(ids, child.Id)
			stack = append(stack, child.Id)
		}
	}
	return ids, nil
}

func (api *API) getComments(ctx context.Context, entryGuid string) ([]model.CommentView, error) {
	var comments []model.Comment
	err := api.DB.WithContext(ctx).
		Where("entry_guid = ? AND parent_id IS NULL", entryGuid).
		Order("created_at").Find(&comments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load comments")
	}
	return api.commentViews(ctx, comments)
}

func (api *API) batchGetComments(ctx context.Context, entryGuids []string) (map[string][]model.CommentView, error) {
	byGuid := make(map[string][]model.CommentView)
	for _, guid := range entryGuids {
		byGuid[guid] = []model.CommentView{}
	}
	for _, chunk := range utils.ChunkStrings(entryGuids, queryChunkSize) {
		var comments []model.Comment
		err := api.DB.WithContext(ctx).
			Where("entry_guid IN ? AND parent_id IS NULL", chunk).
			Order("created_at").Find(&comments).Error
		if err != nil {
			return nil, errors.Wrap(err, "failed to load comments")
		}
		views, err := api.commentViews(ctx, comments)
		if err != nil {
			return nil, err
		}
		for _, view := range views {
			byGuid[view.EntryGuid] = append(byGuid[view.EntryGuid], view)
		}
	}
	return byGuid, nil
}

func (api *API) getCommentReplies(ctx context.Context, commentID string) ([]model.CommentView, error) {
	var comments []model.Comment
	err := api.DB.WithContext(ctx).
		Where("parent_id = ?", commentID).
		Order("created_at").Find(&comments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load comment replies")
	}
	return api.commentViews(ctx, comments)
}

// commentViews attaches author display projections, resolved once per call
// rather than per comment.
func (api *API) commentViews(ctx context.Context, comments []model.Comment) ([]model.CommentView, error) {
	userIDs := make([]string, 0, len(comments))
	for _, comment := range comments {
		userIDs = append(userIDs, comment.UserID)
	}
	displays, err := userDisplayMap(api.DB.WithContext(ctx), userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]model.CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, model.CommentView{Comment: comment, User: displays[comment.UserID]})
	}
	return views, nil
}

// toggleCommentLike consumes the likes tiers only when creating a like. The
// unlike path stays unmetered so users can always back out.
func (api *API) toggleCommentLike(ctx context.Context, userID string, commentID string) (*model.ToggleCommentLikeResult, error) {
	if commentID == "" {
		return nil, errors.New("commentId is required")
	}

	var result *model.ToggleCommentLikeResult
	var entryGuid string
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		findErr := tx.Where("id = ?", commentID).First(&comment).Error
		if findErr == gorm.ErrRecordNotFound {
			return errNotFound("Comment")
		}
		if findErr != nil {
			return errors.Wrap(findErr, "failed to load comment")
		}
		entryGuid = comment.EntryGuid

		var like model.CommentLike
		likeErr := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).First(&like).Error
		if likeErr == nil {
			if err := tx.Delete(&like).Error; err != nil {
				return errors.Wrap(err, "failed to delete comment like")
			}
			err := tx.Model(&model.Comment{}).Where("id = ? AND like_count > 0", commentID).
				Update("like_count", gorm.Expr("like_count - 1")).Error
			if err != nil {
				return errors.Wrap(err, "failed to update like count")
			}
			result = &model.ToggleCommentLikeResult{Action: model.ActionUnliked}
		} else if likeErr == gorm.ErrRecordNotFound {
			if err := api.Limiter.Within(tx).ConsumeTiers(ctx, userID, ratelimit.LikesTiers...); err != nil {
				return err
			}
			if err := tx.Create(&model.CommentLike{UserID: userID, CommentID: commentID}).Error; err != nil {
				return errors.Wrap(err, "failed to create comment like")
			}
			err := tx.Model(&model.Comment{}).Where("id = ?", commentID).
				Update("like_count", gorm.Expr("like_count + 1")).Error
			if err != nil {
				return errors.Wrap(err, "failed to update like count")
			}
			result = &model.ToggleCommentLikeResult{Action: model.ActionLiked}
		} else {
			return errors.Wrap(likeErr, "failed to check comment like")
		}

		if err := tx.Where("id = ?", commentID).First(&comment).Error; err != nil {
			return errors.Wrap(err, "failed to reload comment")
		}
		result.LikeCount = comment.LikeCount
		return nil
	})
	if err != nil {
		api.publishRejected(model.EventCommentLiked, userID, err)
		return nil, err
	}
	api.publish(model.Event{Type: model.EventCommentLiked, ActorID: userID, EntryGuid: entryGuid})
	return result, nil
}

func (api *API) getCommentLikeStatus(ctx context.Context, userID string, commentID string) (*model.CommentLikeStatus, error) {
	var comment model.Comment
	findErr := api.DB.WithContext(ctx).Where("id = ?", commentID).First(&comment).Error
	if findErr == gorm.ErrRecordNotFound {
		return nil, errNotFound("Comment")
	}
	if findErr != nil {
		return nil, errors.Wrap(findErr, "failed to load comment")
	}

	var liked int64
	err := api.DB.WithContext(ctx).Model(&model.CommentLike{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&liked).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to check comment like")
	}
	return &model.CommentLikeStatus{IsLiked: liked > 0, Count: comment.LikeCount}, nil
}

func (api *API) batchGetCommentLikeStatuses(ctx context.Context, userID string, commentIDs []string) (map[string]model.CommentLikeStatus, error) {
	statuses := make(map[string]model.CommentLikeStatus)
	for _, chunk := range utils.ChunkStrings(commentIDs, queryChunkSize) {
		var comments []model.Comment
		err := api.DB.WithContext(ctx).Where("id IN ?", chunk).Find(&comments).Error
		if err != nil {
			return nil, errors.Wrap(err, "failed to load comments")
		}
		var likes []model.CommentLike
		err = api.DB.WithContext(ctx).
			Where("user_id = ? AND comment_id IN ?", userID, chunk).
			Find(&likes).Error
		if err != nil {
			return nil, errors.Wrap(err, "failed to load comment likes")
		}

		likedSet := make(map[string]bool, len(likes))
		for _, like := range likes {
			likedSet[like.CommentID] = true
		}
		for _, comment := range comments {
			statuses[comment.Id] = model.CommentLikeStatus{
				IsLiked: likedSet[comment.Id],
				Count:   comment.LikeCount,
			}
		}
	}
	return statuses, nil
}

func (api *API) HandleAddComment(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.AddCommentInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.addComment(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleDeleteComment(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.CommentIDInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.deleteComment(c.Request.Context(), userID, input.CommentID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleGetComments(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var input model.EntryGuidInput
	if !bindInput(c, &input) {
		return
	}
	views, err := api.getComments(c.Request.Context(), input.EntryGuid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (api *API) HandleBatchGetComments(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var input model.BatchCommentsInput
	if !bindInput(c, &input) {
		return
	}
	byGuid, err := api.batchGetComments(c.Request.Context(), input.EntryGuids)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, byGuid)
}

func (api *API) HandleGetCommentReplies(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var input model.CommentIDInput
	if !bindInput(c, &input) {
		return
	}
	views, err := api.getCommentReplies(c.Request.Context(), input.CommentID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (api *API) HandleToggleCommentLike(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.CommentIDInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.toggleCommentLike(c.Request.Context(), userID, input.CommentID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleGetCommentLikeStatus(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.CommentIDInput
	if !bindInput(c, &input) {
		return
	}
	status, err := api.getCommentLikeStatus(c.Request.Context(), userID, input.CommentID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (api *API) HandleBatchGetCommentLikeStatuses(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.BatchCommentLikesInput
	if !bindInput(c, &input) {
		return
	}
	statuses, err := api.batchGetCommentLikeStatuses(c.Request.Context(), userID, input.CommentIDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}
