package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
)

func (api *API) sendFriendRequest(ctx context.Context, userID string, input model.FriendRequestInput) (*model.FriendRequestResult, error) {
	if input.RequesteeID == "" {
		return nil, errors.New("requesteeId is required")
	}
	if input.RequesteeID == userID {
		return nil, errors.New("You cannot send a friend request to yourself")
	}

	var result *model.FriendRequestResult
	var event *model.Event
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Quota burns before any read so abusive callers fail fast.
		if err := api.Limiter.Within(tx).ConsumeTiers(ctx, userID, ratelimit.FriendsTiers...); err != nil {
			return err
		}
		if _, err := getUserById(tx, input.RequesteeID); err != nil {
			return err
		}

		var existing model.Friendship
		findErr := tx.Where(
			"(requester_id = ? AND requestee_id = ?) OR (requester_id = ? AND requestee_id = ?)",
			userID, input.RequesteeID, input.RequesteeID, userID,
		).First(&existing).Error
		if findErr == nil {
			switch {
			case existing.Status == model.FriendshipStatusAccepted:
				return errors.New("You are already friends with this user")
			case existing.RequesterID == userID:
				return errors.New("Friend request already sent")
			default:
				// Reciprocal pending request: collapse the cross-request
				// into one accepted friendship.
				existing.Status = model.FriendshipStatusAccepted
				if err := tx.Save(&existing).Error; err != nil {
					return errors.Wrap(err, "failed to accept friend request")
				}
				result = &model.FriendRequestResult{FriendshipID: existing.Id}
				event = &model.Event{
					Type:         model.EventFriendAccepted,
					ActorID:      userID,
					TargetUserID: input.RequesteeID,
				}
				return nil
			}
		}
		if findErr != gorm.ErrRecordNotFound {
			return errors.Wrap(findErr, "failed to check existing friendship")
		}

		friendship := model.Friendship{
			Id:          uuid.New().String(),
			RequesterID: userID,
			RequesteeID: input.RequesteeID,
			Status:      model.FriendshipStatusPending,
		}
		if err := tx.Create(&friendship).Error; err != nil {
			return errors.Wrap(err, "failed to create friend request")
		}
		result = &model.FriendRequestResult{FriendshipID: friendship.Id}
		event = &model.Event{
			Type:         model.EventFriendRequest,
			ActorID:      userID,
			TargetUserID: input.RequesteeID,
		}
		return nil
	})
	if err != nil {
		api.publishRejected(model.EventFriendRequest, userID, err)
		return nil, err
	}
	if event != nil {
		api.publish(*event)
	}
	return result, nil
}

func (api *API) acceptFriendRequest(ctx context.Context, userID string, friendshipID string) (*model.Friendship, error) {
	if friendshipID == "" {
		return nil, errors.New("friendshipId is required")
	}

	var friendship model.Friendship
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("id = ?", friendshipID).First(&friendship).Error
		if findErr == gorm.ErrRecordNotFound {
			return errNotFound("Friendship")
		}
		if findErr != nil {
			return errors.Wrap(findErr, "failed to load friendship")
		}
		if friendship.RequesteeID != userID {
			return errNotAuthorized("accept this friend request")
		}
		if friendship.Status != model.FriendshipStatusPending {
			return errors.New("Friend request already accepted")
		}
		friendship.Status = model.FriendshipStatusAccepted
		if err := tx.Save(&friendship).Error; err != nil {
			return errors.Wrap(err, "failed to accept friend request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	api.publish(model.Event{
		Type:         model.EventFriendAccepted,
		ActorID:      userID,
		TargetUserID: friendship.RequesterID,
	})
	return &friendship, nil
}

// deleteFriendship covers cancel, decline and unfriend: any party removes
// the row regardless of status.
func (api *API) deleteFriendship(ctx context.Context, userID string, friendshipID string) (*model.DeleteFriendshipResult, error) {
	if friendshipID == "" {
		return nil, errors.New("friendshipId is required")
	}

	var other string
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var friendship model.Friendship
		findErr := tx.Where("id = ?", friendshipID).First(&friendship).Error
		if findErr == gorm.ErrRecordNotFound {
			return errNotFound("Friendship")
		}
		if findErr != nil {
			return errors.Wrap(findErr, "failed to load friendship")
		}
		if friendship.RequesterID != userID && friendship.RequesteeID != userID {
			return errNotAuthorized("delete this friendship")
		}
		other = friendship.RequesterID
		if other == userID {
			other = friendship.RequesteeID
		}
		if err := tx.Delete(&friendship).Error; err != nil {
			return errors.Wrap(err, "failed to delete friendship")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	api.publish(model.Event{
		Type:         model.EventFriendDeleted,
		ActorID:      userID,
		TargetUserID: other,
	})
	return &model.DeleteFriendshipResult{Action: model.ActionDeleted, FriendshipID: friendshipID}, nil
}

func (api *API) getFriendshipStatusByUsername(ctx context.Context, userID string, username string) (*model.FriendshipStatusView, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	db := api.DB.WithContext(ctx)
	target, err := getUserByUsername(db, username)
	if err != nil {
		if model.ClassifyError(err.Error()) == model.CategoryNotFound {
			return &model.FriendshipStatusView{Username: username, Exists: false, Status: model.RelationNone}, nil
		}
		return nil, err
	}
	if target.Id == userID {
		return &model.FriendshipStatusView{
			UserID:   target.Id,
			Username: username,
			Exists:   true,
			Status:   model.RelationSelf,
		}, nil
	}

	view := model.FriendshipStatusView{
		UserID:   target.Id,
		Username: username,
		Exists:   true,
		Status:   model.RelationNone,
	}
	var friendship model.Friendship
	findErr := db.Where(
		"(requester_id = ? AND requestee_id = ?) OR (requester_id = ? AND requestee_id = ?)",
		userID, target.Id, target.Id, userID,
	).First(&friendship).Error
	if findErr == gorm.ErrRecordNotFound {
		return &view, nil
	}
	if findErr != nil {
		return nil, errors.Wrap(findErr, "failed to load friendship")
	}

	view.Status = string(friendship.Status)
	view.FriendshipID = friendship.Id
	if friendship.RequesterID == userID {
		view.Direction = model.DirectionSent
	} else {
		view.Direction = model.DirectionReceived
	}
	return &view, nil
}

// getBatchFriendshipStatuses pulls the caller's sent and received rows with
// two indexed queries and answers every requested id from one in-memory map,
// never one query per id.
func (api *API) getBatchFriendshipStatuses(ctx context.Context, userID string, userIDs []string) ([]model.BatchFriendshipEntry, error) {
	db := api.DB.WithContext(ctx)

	var sent []model.Friendship
	if err := db.Where("requester_id = ?", userID).Find(&sent).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load sent friendships")
	}
	var received []model.Friendship
	if err := db.Where("requestee_id = ?", userID).Find(&received).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load received friendships")
	}

	byUser := make(map[string]model.BatchFriendshipEntry)
	for _, friendship := range sent {
		byUser[friendship.RequesteeID] = model.BatchFriendshipEntry{
			UserID:       friendship.RequesteeID,
			Status:       string(friendship.Status),
			Direction:    model.DirectionSent,
			FriendshipID: friendship.Id,
		}
	}
	for _, friendship := range received {
		byUser[friendship.RequesterID] = model.BatchFriendshipEntry{
			UserID:       friendship.RequesterID,
			Status:       string(friendship.Status),
			Direction:    model.DirectionReceived,
			FriendshipID: friendship.Id,
		}
	}

	entries := make([]model.BatchFriendshipEntry, 0, len(userIDs))
	for _, id := range userIDs {
		if id == userID {
			entries = append(entries, model.BatchFriendshipEntry{UserID: id, Status: model.RelationSelf})
			continue
		}
		if entry, ok := byUser[id]; ok {
			entries = append(entries, entry)
			continue
		}
		entries = append(entries, model.BatchFriendshipEntry{UserID: id, Status: model.RelationNone})
	}
	return entries, nil
}

func (api *API) HandleSendFriendRequest(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.FriendRequestInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.sendFriendRequest(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleAcceptFriendRequest(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.FriendshipIDInput
	if !bindInput(c, &input) {
		return
	}
	friendship, err := api.acceptFriendRequest(c.Request.Context(), userID, input.FriendshipID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, friendship)
}

func (api *API) HandleDeleteFriendship(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.FriendshipIDInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.deleteFriendship(c.Request.Context(), userID, input.FriendshipID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleGetFriendshipStatusByUsername(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.UsernameInput
	if !bindInput(c, &input) {
		return
	}
	view, err := api.getFriendshipStatusByUsername(c.Request.Context(), userID, input.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (api *API) HandleGetBatchFriendshipStatuses(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.BatchFriendshipStatusInput
	if !bindInput(c, &input) {
		return
	}
	entries, err := api.getBatchFriendshipStatuses(c.Request.Context(), userID, input.UserIDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
