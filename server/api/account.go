package api

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/server/middlewares"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,24}$`)

func (api *API) signUp(ctx context.Context, input model.SignUpInput) (*model.AuthResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if !usernameRe.MatchString(username) {
		return nil, errors.New("Username must be 3-24 characters of a-z, 0-9 or _")
	}
	if len(input.Password) < 8 {
		return nil, errors.New("Password must be at least 8 characters")
	}
	name := sanitizeContent(input.Name)
	if name == "" {
		name = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := model.User{
		Id:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Name:         name,
	}
	err = api.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to check username")
		}
		if count > 0 {
			return errors.New("Username already taken")
		}
		if err := tx.Create(&user).Error; err != nil {
			// Concurrent signups race past the count check into the unique
			// index.
			if strings.Contains(err.Error(), "duplicate key") {
				return errors.New("Username already taken")
			}
			return errors.Wrap(err, "failed to create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return api.authResult(&user)
}

func (api *API) logIn(ctx context.Context, input model.LogInInput) (*model.AuthResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	var user model.User
	err := api.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New("Invalid username or password")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, errors.New("Invalid username or password")
	}
	return api.authResult(&user)
}

func (api *API) authResult(user *model.User) (*model.AuthResult, error) {
	token, err := middlewares.GenerateToken(user.Id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue token")
	}
	return &model.AuthResult{UserID: user.Id, Username: user.Username, Token: token}, nil
}

func (api *API) HandleSignUp(c *gin.Context) {
	var input model.SignUpInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.signUp(c.Request.Context(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (api *API) HandleLogIn(c *gin.Context) {
	var input model.LogInInput
	if !bindInput(c, &input) {
		return
	}
	result, err := api.logIn(c.Request.Context(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
