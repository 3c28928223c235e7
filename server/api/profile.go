package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
)

const (
	maxNameLength = 100
	maxBioLength  = 500
)

// updateProfile patches only the fields the client sent; nil means keep.
func (api *API) updateProfile(ctx context.Context, userID string, input model.UpdateProfileInput) (*model.ProfileView, error) {
	if input.Name == nil && input.Bio == nil && input.ProfileImage == nil {
		return nil, errors.New("Nothing to update")
	}

	var user *model.User
	err := api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := api.Limiter.Within(tx).ConsumeTiers(ctx, userID, ratelimit.ProfileUpdate); err != nil {
			return err
		}
		loaded, err := getUserById(tx, userID)
		if err != nil {
			return err
		}
		user = loaded

		if input.Name != nil {
			name := sanitizeContent(*input.Name)
			if name == "" {
				return errors.New("Name cannot be empty")
			}
			if utf8.RuneCountInString(name) > maxNameLength {
				return fmt.Errorf("Name is too long (max %d characters)", maxNameLength)
			}
			user.Name = name
		}
		if input.Bio != nil {
			bio := sanitizeContent(*input.Bio)
			if utf8.RuneCountInString(bio) > maxBioLength {
				return fmt.Errorf("Bio is too long (max %d characters)", maxBioLength)
			}
			user.Bio = bio
		}
		if input.ProfileImage != nil {
			image := *input.ProfileImage
			if image != "" && !isHTTPURL(image) {
				return errors.New("Profile image must be a valid URL")
			}
			user.ProfileImage = image
		}
		return errors.Wrap(tx.Save(user).Error, "failed to update profile")
	})
	if err != nil {
		return nil, err
	}
	view := profileView(user)
	return &view, nil
}

func (api *API) getProfileByUsername(ctx context.Context, userID string, username string) (*model.ProfileResult, error) {
	user, err := getUserByUsername(api.DB.WithContext(ctx), username)
	if err != nil {
		return nil, err
	}
	friendship, err := api.getFriendshipStatusByUsername(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	return &model.ProfileResult{Profile: profileView(user), Friendship: friendship}, nil
}

func profileView(user *model.User) model.ProfileView {
	return model.ProfileView{
		UserID:       user.Id,
		Username:     user.Username,
		Name:         user.Name,
		Bio:          user.Bio,
		ProfileImage: user.ProfileImage,
	}
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func (api *API) HandleUpdateProfile(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.UpdateProfileInput
	if !bindInput(c, &input) {
		return
	}
	view, err := api.updateProfile(c.Request.Context(), userID, input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (api *API) HandleGetProfileByUsername(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var input model.UsernameInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.getProfileByUsername(c.Request.Context(), userID, input.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
