package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialmux/socialmux/model"
	Logger "github.com/socialmux/socialmux/utils/log"
)

// Error constructors. The exact wording matters: model.ClassifyError and the
// client's toast routing both key off these messages.

func errNotAuthenticated() error {
	return errors.New("Not authenticated")
}

func errNotAuthorized(action string) error {
	return fmt.Errorf("Not authorized to %s", action)
}

func errNotFound(what string) error {
	return fmt.Errorf("%s not found", what)
}

func errInvalidBody() error {
	return errors.New("invalid request body")
}

func errGlobalCooldown() error {
	return errors.New("You are doing that too fast. Please slow down.")
}

func errPerPostCooldown() error {
	return errors.New("You are toggling this post too fast. Please slow down.")
}

func statusFor(category model.ErrorCategory) int {
	switch category {
	case model.CategoryNotAuthenticated:
		return http.StatusUnauthorized
	case model.CategoryNotAuthorized:
		return http.StatusForbidden
	case model.CategoryNotFound:
		return http.StatusNotFound
	case model.CategoryRateLimit:
		return http.StatusTooManyRequests
	case model.CategoryConflict:
		return http.StatusConflict
	case model.CategoryInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// abortWithError renders the uniform error envelope. Internal failures keep
// their detail in the log only.
func abortWithError(c *gin.Context, err error) {
	category := model.ClassifyError(err.Error())
	if category == model.CategoryInternal {
		Logger.Log.Errorln("internal error:", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal error"})
		return
	}
	c.AbortWithStatusJSON(statusFor(category), model.ErrorResponse{Error: err.Error()})
}
