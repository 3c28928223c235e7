package api

import (
	"context"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/utils"
)

// retweet is a toggle: an existing row is deleted, a missing one is created.
// Only the create path consumes the retweets tiers, backing out of a retweet
// is always allowed.
func (api *API) retweet(ctx context.Context, userID string, input model.RetweetInput) (*model.RetweetResult, error) {
	if input.EntryGuid == "" {
		return nil, errors.New("entryGuid is required")
	}

	var result *model.RetweetResult
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Retweet
		findErr := tx.Where("user_id = ? AND entry_guid = ?", userID, input.EntryGuid).First(&existing).Error
		if findErr == nil {
			if err := tx.Delete(&existing).Error; err != nil {
				return errors.Wrap(err, "failed to delete retweet")
			}
			result = &model.RetweetResult{Action: model.ActionUnretweeted, RetweetID: existing.Id}
			return nil
		}
		if findErr != gorm.ErrRecordNotFound {
			return errors.Wrap(findErr, "failed to check existing retweet")
		}

		if err := api.Limiter.Within(tx).ConsumeTiers(ctx, userID, ratelimit.RetweetsTiers...); err != nil {
			return err
		}
		retweet := model.Retweet{
			Id:          uuid.New().String(),
			UserID:      userID,
			EntryGuid:   input.EntryGuid,
			FeedUrl:     input.FeedUrl,
			Title:       input.Title,
			PubDate:     normalizePubDate(input.PubDate),
			Link:        input.Link,
			RetweetedAt: time.Now(),
		}
		if err := tx.Create(&retweet).Error; err != nil {
			return errors.Wrap(err, "failed to create retweet")
		}
		result = &model.RetweetResult{Action: model.ActionRetweeted, RetweetID: retweet.Id}
		return nil
	})
	if err != nil {
		api.publishRejected(model.EventRetweeted, userID, err)
		return nil, err
	}
	eventType := model.EventRetweeted
	if result.Action == model.ActionUnretweeted {
		eventType = model.EventUnretweeted
	}
	api.publish(model.Event{Type: eventType, ActorID: userID, EntryGuid: input.EntryGuid})
	return result, nil
}

// unretweet is the explicit delete path. Absent rows answer notFound instead
// of erroring, and nothing is metered.
func (api *API) unretweet(ctx context.Context, userID string, entryGuid string) (*model.UnretweetResult, error) {
	if entryGuid == "" {
		return nil, errors.New("entryGuid is required")
	}

	var result *model.UnretweetResult
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Retweet
		findErr := tx.Where("user_id = ? AND entry_guid = ?", userID, entryGuid).First(&existing).Error
		if findErr == gorm.ErrRecordNotFound {
			result = &model.UnretweetResult{Success: false, NotFound: true}
			return nil
		}
		if findErr != nil {
			return errors.Wrap(findErr, "failed to check existing retweet")
		}
		if err := tx.Delete(&existing).Error; err != nil {
			return errors.Wrap(err, "failed to delete retweet")
		}
		result = &model.UnretweetResult{Success: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Success {
		api.publish(model.Event{Type: model.EventUnretweeted, ActorID: userID, EntryGuid: entryGuid})
	}
	return result, nil
}

func (api *API) getRetweetStatus(ctx context.Context, userID string, entryGuid string) (*model.RetweetStatus, error) {
	var count int64
	err := api.DB.WithContext(ctx).Model(&model.Retweet{}).
		Where("entry_guid = ?", entryGuid).Count(&count).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count retweets")
	}
	var mine int64
	err = api.DB.WithContext(ctx).Model(&model.Retweet{}).
		Where("user_id = ? AND entry_guid = ?", userID, entryGuid).Count(&mine).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to check retweet state")
	}
	return &model.RetweetStatus{IsRetweeted: mine > 0, Count: int(count)}, nil
}

// batchGetRetweetCounts tallies counts and the caller's own retweeted set in
// a single pass over one indexed query per chunk.
func (api *API) batchGetRetweetCounts(ctx context.Context, userID string, entryGuids []string) (map[string]model.RetweetStatus, error) {
	statuses := make(map[string]model.RetweetStatus)
	for _, guid := range entryGuids {
		statuses[guid] = model.RetweetStatus{}
	}
	for _, chunk := range utils.ChunkStrings(entryGuids, queryChunkSize) {
		var rows []model.Retweet
		err := api.DB.WithContext(ctx).
			Select("user_id", "entry_guid").
			Where("entry_guid IN ?", chunk).
			Find(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "failed to load retweets")
		}
		for _, row := range rows {
			status := statuses[row.EntryGuid]
			status.Count++
			if row.UserID == userID {
				status.IsRetweeted = true
			}
			statuses[row.EntryGuid] = status
		}
	}
	return statuses, nil
}

// normalizePubDate stores recognized timestamps as RFC3339 and passes
// unrecognized ones through untouched.
func normalizePubDate(pubDate string) string {
	if pubDate == "" {
		return ""
	}
	parsed, err := dateparse.ParseAny(pubDate)
	if err != nil {
		return pubDate
	}
	return parsed.UTC().Format(time.RFC3339)
}

func (api *API) HandleRetweet(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.RetweetInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.retweet(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleUnretweet(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.EntryGuidInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.unretweet(c.Request.Context(), userID, input.EntryGuid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleGetRetweetStatus(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.EntryGuidInput
	if !bindInput(c, &input) {
		return
	}
	status, err := api.getRetweetStatus(c.Request.Context(), userID, input.EntryGuid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (api *API) HandleBatchGetRetweetCounts(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.BatchRetweetCountsInput
	if !bindInput(c, &input) {
		return
	}
	statuses, err := api.batchGetRetweetCounts(c.Request.Context(), userID, input.EntryGuids)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}
