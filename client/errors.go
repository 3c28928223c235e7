package client

import (
	"github.com/socialmux/socialmux/model"
)

// ToastCategory buckets mutation failures for display. Coarser than the
// server's taxonomy: the UI only distinguishes what changes the toast copy.
type ToastCategory string

const (
	ToastRateLimit ToastCategory = "rate_limit"
	ToastAuth      ToastCategory = "auth"
	ToastNotFound  ToastCategory = "not_found"
	ToastGeneric   ToastCategory = "generic"
)

// Categorize maps a server error onto its toast bucket through the same
// substring classification the server's status mapping uses, so both sides
// read one message the same way.
func Categorize(err error) ToastCategory {
	if err == nil {
		return ToastGeneric
	}
	switch model.ClassifyError(err.Error()) {
	case model.CategoryRateLimit:
		return ToastRateLimit
	case model.CategoryNotAuthenticated, model.CategoryNotAuthorized:
		return ToastAuth
	case model.CategoryNotFound:
		return ToastNotFound
	default:
		return ToastGeneric
	}
}
