package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
)

const feedFetchTimeout = 8 * time.Second

// submitFeed burns its daily token before fetching anything, the same
// fail-fast order every metered mutation follows. A submission whose feed
// cannot be fetched or parsed costs the token.
func (api *API) submitFeed(ctx context.Context, userID string, input model.SubmitFeedInput) (*model.SubmitFeedResult, error) {
	if !isHTTPURL(input.Url) {
		return nil, errors.New("Invalid feed URL")
	}

	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return api.Limiter.Within(tx).ConsumeTiers(ctx, userID, ratelimit.SubmissionsDaily)
	})
	if err != nil {
		return nil, err
	}

	if existing, err := api.findSubmission(ctx, input.Url); err != nil {
		return nil, err
	} else if existing != nil {
		return &model.SubmitFeedResult{AlreadySubmitted: true, SubmissionID: existing.Id, Title: existing.Title}, nil
	}

	feed, err := fetchFeed(ctx, input.Url)
	if err != nil {
		return nil, errors.New("Could not fetch or parse the feed at this URL")
	}
	metadata, err := feedMetadata(feed)
	if err != nil {
		return nil, err
	}

	submission := model.FeedSubmission{
		Id:       uuid.New().String(),
		UserID:   userID,
		Url:      input.Url,
		Title:    feed.Title,
		Status:   model.SubmissionStatusPending,
		Metadata: metadata,
	}
	err = api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check under the unique index, a concurrent submitter may have
		// won the race since the precheck.
		var existing model.FeedSubmission
		findErr := tx.Where("url = ?", input.Url).First(&existing).Error
		if findErr == nil {
			submission = existing
			return errAlreadySubmitted
		}
		if findErr != gorm.ErrRecordNotFound {
			return errors.Wrap(findErr, "failed to check existing submission")
		}
		return errors.Wrap(tx.Create(&submission).Error, "failed to create submission")
	})
	if err == errAlreadySubmitted {
		return &model.SubmitFeedResult{AlreadySubmitted: true, SubmissionID: submission.Id, Title: submission.Title}, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.SubmitFeedResult{Success: true, SubmissionID: submission.Id, Title: submission.Title}, nil
}

var errAlreadySubmitted = errors.New("feed already submitted")

func (api *API) findSubmission(ctx context.Context, url string) (*model.FeedSubmission, error) {
	var existing model.FeedSubmission
	err := api.DB.WithContext(ctx).Where("url = ?", url).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to check existing submission")
	}
	return &existing, nil
}

func fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, feedFetchTimeout)
	defer cancel()
	return gofeed.NewParser().ParseURLWithContext(url, ctx)
}

// feedMetadata snapshots the parsed feed head for the review UI.
func feedMetadata(feed *gofeed.Feed) (datatypes.JSON, error) {
	meta := map[string]string{
		"description": feed.Description,
		"language":    feed.Language,
	}
	if feed.Image != nil {
		meta["image"] = feed.Image.URL
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode feed metadata")
	}
	return datatypes.JSON(data), nil
}

func (api *API) HandleSubmitFeed(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.SubmitFeedInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.submitFeed(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
