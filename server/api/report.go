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

const maxReportDetailsLength = 1000

func (api *API) reportContent(ctx context.Context, userID string, input model.ReportInput) (*model.ReportResult, error) {
	if input.EntryGuid == "" && input.FeedUrl == "" {
		return nil, errors.New("Nothing to report")
	}
	if !utils.ContainsString(model.ReportReasons, input.Reason) {
		return nil, errors.New("Invalid report reason")
	}

	details := sanitizeContent(input.Details)
	if utf8.RuneCountInString(details) > maxReportDetailsLength {
		return nil, fmt.Errorf("Details are too long (max %d characters)", maxReportDetailsLength)
	}

	report := model.Report{
		Id:        uuid.New().String(),
		UserID:    userID,
		EntryGuid: input.EntryGuid,
		FeedUrl:   input.FeedUrl,
		Reason:    input.Reason,
		Details:   details,
	}
	var reporter *model.User
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := api.Limiter.Within(tx).ConsumeTiers(ctx, userID, ratelimit.ReportsDaily); err != nil {
			return err
		}
		loaded, err := getUserById(tx, userID)
		if err != nil {
			return err
		}
		reporter = loaded
		return errors.Wrap(tx.Create(&report).Error, "failed to create report")
	})
	if err != nil {
		return nil, err
	}

	// Moderator notification is best effort and off the request path.
	if api.Notifier != nil {
		go api.Notifier.NotifyReport(report, *reporter)
	}
	return &model.ReportResult{Success: true, ReportID: report.Id}, nil
}

func (api *API) HandleReportContent(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.ReportInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.reportContent(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
