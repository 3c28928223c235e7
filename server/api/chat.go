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
	Logger "github.com/socialmux/socialmux/utils/log"
)

const (
	maxChatMessageLength = 2000
	// historyWindow is how many prior turns the responder sees.
	historyWindow = 20

	fallbackReply = "Sorry, I could not come up with a reply. Please try again."
)

// sendChatMessage treats quota exhaustion as data, not as an error: the
// client renders the remaining wait instead of a failure toast. The
// responder runs outside the transaction so a slow completion never holds a
// row lock.
func (api *API) sendChatMessage(ctx context.Context, userID string, input model.ChatMessageInput) (*model.ChatMessageResult, error) {
	content := sanitizeContent(input.Message)
	if content == "" {
		return nil, errors.New("Message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		return nil, fmt.Errorf("Message is too long (max %d characters)", maxChatMessageLength)
	}

	var limitResult ratelimit.Result
	userMsg := model.ChatMessage{
		Id:           uuid.New().String(),
		UserID:       userID,
		Role:         model.ChatRoleUser,
		Content:      content,
		ActiveButton: input.ActiveButton,
	}
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := api.Limiter.Within(tx).Limit(ctx, userID, ratelimit.Chat)
		if err != nil {
			return err
		}
		limitResult = res
		if !res.Ok {
			return nil
		}
		return errors.Wrap(tx.Create(&userMsg).Error, "failed to store chat message")
	})
	if err != nil {
		return nil, err
	}
	if !limitResult.Ok {
		return &model.ChatMessageResult{
			Limited:      true,
			RetryAfterMs: limitResult.RetryAfter.Milliseconds(),
		}, nil
	}

	history, err := api.recentChatHistory(ctx, userID, historyWindow)
	if err != nil {
		return nil, err
	}
	reply := api.respond(ctx, input.ActiveButton, history, content)

	assistantMsg := model.ChatMessage{
		Id:           uuid.New().String(),
		UserID:       userID,
		Role:         model.ChatRoleAssistant,
		Content:      reply,
		ActiveButton: input.ActiveButton,
	}
	if err := api.DB.WithContext(ctx).Create(&assistantMsg).Error; err != nil {
		return nil, errors.Wrap(err, "failed to store assistant message")
	}

	view := chatMessageView(assistantMsg)
	return &model.ChatMessageResult{Success: true, Message: &view}, nil
}

// respond never fails the mutation: a missing or broken responder degrades
// to a canned reply.
func (api *API) respond(ctx context.Context, persona string, history []model.ChatMessage, message string) string {
	if api.Responder == nil {
		return fallbackReply
	}
	reply, err := api.Responder.Respond(ctx, persona, history, message)
	if err != nil {
		Logger.Log.Errorln("chat responder failed:", err)
		return fallbackReply
	}
	return reply
}

// getRateLimitStatus derives the remaining chat quota by binary-searching
// the largest token count Check still admits. No stored remaining counter
// can drift this way, and the search stays within a handful of probes.
func (api *API) getRateLimitStatus(ctx context.Context, userID string) (*model.RateLimitStatus, error) {
	def, err := ratelimit.Lookup(ratelimit.Chat)
	if err != nil {
		return nil, err
	}
	lo, hi := 0, def.Rate
	for lo < hi {
		mid := (lo + hi + 1) / 2
		res, err := api.Limiter.Check(ctx, userID, ratelimit.Chat, mid)
		if err != nil {
			return nil, err
		}
		if res.Ok {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return &model.RateLimitStatus{Remaining: lo, Used: def.Rate - lo}, nil
}

func (api *API) recentChatHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := api.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load chat history")
	}
	// Chronological order for rendering and for the responder.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (api *API) getChatHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessageView, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	messages, err := api.recentChatHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]model.ChatMessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, chatMessageView(msg))
	}
	return views, nil
}

func chatMessageView(msg model.ChatMessage) model.ChatMessageView {
	return model.ChatMessageView{
		Id:        msg.Id,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.UnixMilli(),
	}
}

func (api *API) HandleSendChatMessage(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.ChatMessageInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.sendChatMessage(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleGetRateLimitStatus(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	status, err := api.getRateLimitStatus(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (api *API) HandleGetChatHistory(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.ChatHistoryInput
	if !bindInput(c, &input) {
		return
	}
	views, err := api.getChatHistory(c.Request.Context(), userID, input.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}
