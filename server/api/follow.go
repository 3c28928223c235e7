package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/utils"
)

// Rapid follow/unfollow toggling is blunted by two cooldowns checked before
// anything else: one across all posts, one per post.
const (
	globalFollowCooldown = 2 * time.Second
	perPostCooldown      = 1 * time.Second
)

func (api *API) followPost(ctx context.Context, userID string, input model.FollowInput) (*model.FollowResult, error) {
	if input.PostID == "" {
		return nil, errors.New("postId is required")
	}
	if input.FeedUrl == "" {
		return nil, errors.New("feedUrl is required")
	}

	var result *model.FollowResult
	created := false
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := checkGlobalFollowCooldown(tx, userID, now); err != nil {
			return err
		}

		var existing model.Following
		findErr := tx.Where("user_id = ? AND post_id = ?", userID, input.PostID).First(&existing).Error
		if findErr == nil {
			if now.Sub(existing.CreatedAt) < perPostCooldown {
				return errPerPostCooldown()
			}
			// Already following: idempotent success.
			result = &model.FollowResult{Success: true, FeedUrl: existing.FeedUrl, Action: model.ActionFollowed}
			return nil
		}
		if findErr != gorm.ErrRecordNotFound {
			return errors.Wrap(findErr, "failed to check existing follow")
		}

		if err := checkFollowWindows(tx, userID, now); err != nil {
			return err
		}

		following := model.Following{
			Id:      uuid.New().String(),
			UserID:  userID,
			PostID:  input.PostID,
			FeedUrl: input.FeedUrl,
		}
		if err := tx.Create(&following).Error; err != nil {
			return errors.Wrap(err, "failed to create follow")
		}
		if input.RssKey != "" {
			if err := addRssKey(tx, userID, input.RssKey); err != nil {
				return err
			}
		}
		created = true
		result = &model.FollowResult{Success: true, FeedUrl: input.FeedUrl, Action: model.ActionFollowed}
		return nil
	})
	if err != nil {
		api.publishRejected(model.EventFollowed, userID, err)
		return nil, err
	}
	if created {
		api.publish(model.Event{Type: model.EventFollowed, ActorID: userID})
	}
	return result, nil
}

func (api *API) unfollowPost(ctx context.Context, userID string, input model.UnfollowInput) (*model.UnfollowResult, error) {
	if input.PostID == "" {
		return nil, errors.New("postId is required")
	}

	var result *model.UnfollowResult
	deleted := false
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := checkGlobalFollowCooldown(tx, userID, now); err != nil {
			return err
		}

		var existing model.Following
		findErr := tx.Where("user_id = ? AND post_id = ?", userID, input.PostID).First(&existing).Error
		if findErr == gorm.ErrRecordNotFound {
			result = &model.UnfollowResult{Success: false, Error: "Not following this post"}
			return nil
		}
		if findErr != nil {
			return errors.Wrap(findErr, "failed to check existing follow")
		}
		if now.Sub(existing.CreatedAt) < perPostCooldown {
			return errPerPostCooldown()
		}

		if err := tx.Delete(&existing).Error; err != nil {
			return errors.Wrap(err, "failed to delete follow")
		}
		// The key is removed even when another followed post still shares
		// it. See DESIGN.md before changing this.
		if input.RssKey != "" {
			if err := removeRssKey(tx, userID, input.RssKey); err != nil {
				return err
			}
		}
		deleted = true
		result = &model.UnfollowResult{Success: true, Action: model.ActionUnfollowed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if deleted {
		api.publish(model.Event{Type: model.EventUnfollowed, ActorID: userID})
	}
	return result, nil
}

func (api *API) isFollowing(ctx context.Context, userID string, postID string) (bool, error) {
	var count int64
	err := api.DB.WithContext(ctx).Model(&model.Following{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check follow state")
	}
	return count > 0, nil
}

// getFollowStates answers one existence check per requested post id,
// positionally aligned to the input.
func (api *API) getFollowStates(ctx context.Context, userID string, postIDs []string) ([]bool, error) {
	followed := make(map[string]bool)
	for _, chunk := range utils.ChunkStrings(postIDs, queryChunkSize) {
		var rows []model.Following
		err := api.DB.WithContext(ctx).
			Where("user_id = ? AND post_id IN ?", userID, chunk).
			Find(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "failed to load follow states")
		}
		for _, row := range rows {
			followed[row.PostID] = true
		}
	}

	states := make([]bool, len(postIDs))
	for i, postID := range postIDs {
		states[i] = followed[postID]
	}
	return states, nil
}

// checkGlobalFollowCooldown keys off the newest remaining followings row,
// which is how the table-driven cooldown behaves after deletes too.
func checkGlobalFollowCooldown(tx *gorm.DB, userID string, now time.Time) error {
	var latest model.Following
	err := tx.Where("user_id = ?", userID).Order("created_at DESC").First(&latest).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to check follow cooldown")
	}
	if now.Sub(latest.CreatedAt) < globalFollowCooldown {
		return errGlobalCooldown()
	}
	return nil
}

// checkFollowWindows counts the followings table against the registry's
// window shapes instead of consuming registry tokens, so an unfollow frees
// quota immediately.
func checkFollowWindows(tx *gorm.DB, userID string, now time.Time) error {
	for _, name := range ratelimit.FollowingTiers {
		def, err := ratelimit.Lookup(name)
		if err != nil {
			return err
		}
		cutoff := now.Add(-def.Period)
		var count int64
		err = tx.Model(&model.Following{}).
			Where("user_id = ? AND created_at > ?", userID, cutoff).
			Count(&count).Error
		if err != nil {
			return errors.Wrap(err, "failed to count follows")
		}
		if count < int64(def.Rate) {
			continue
		}
		retryAfter := def.Period
		var oldest model.Following
		err = tx.Where("user_id = ? AND created_at > ?", userID, cutoff).
			Order("created_at ASC").First(&oldest).Error
		if err == nil {
			retryAfter = oldest.CreatedAt.Add(def.Period).Sub(now)
		}
		return def.RefusalError(retryAfter)
	}
	return nil
}

func addRssKey(tx *gorm.DB, userID string, rssKey string) error {
	user, err := getUserById(tx, userID)
	if err != nil {
		return err
	}
	if utils.ContainsString(user.RssKeys, rssKey) {
		return nil
	}
	user.RssKeys = append(user.RssKeys, rssKey)
	if err := tx.Save(user).Error; err != nil {
		return errors.Wrap(err, "failed to update rss keys")
	}
	return nil
}

func removeRssKey(tx *gorm.DB, userID string, rssKey string) error {
	user, err := getUserById(tx, userID)
	if err != nil {
		return err
	}
	if !utils.ContainsString(user.RssKeys, rssKey) {
		return nil
	}
	user.RssKeys = utils.RemoveString(user.RssKeys, rssKey)
	if err := tx.Save(user).Error; err != nil {
		return errors.Wrap(err, "failed to update rss keys")
	}
	return nil
}

func (api *API) HandleFollowPost(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.FollowInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.followPost(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleUnfollowPost(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.UnfollowInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.unfollowPost(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleIsFollowing(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.PostIDInput
	if !bindInput(c, &input) {
		return
	}
	following, err := api.isFollowing(c.Request.Context(), userID, input.PostID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, following)
}

func (api *API) HandleGetFollowStates(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.FollowStatesInput
	if !bindInput(c, &input) {
		return
	}
	states, err := api.getFollowStates(c.Request.Context(), userID, input.PostIDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, states)
}
