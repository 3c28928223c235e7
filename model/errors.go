package model

import "strings"

type ErrorCategory string

const (
	CategoryNotAuthenticated ErrorCategory = "NOT_AUTHENTICATED"
	CategoryNotAuthorized    ErrorCategory = "NOT_AUTHORIZED"
	CategoryNotFound         ErrorCategory = "NOT_FOUND"
	CategoryValidation       ErrorCategory = "VALIDATION_ERROR"
	CategoryRateLimit        ErrorCategory = "RATE_LIMIT"
	CategoryConflict         ErrorCategory = "ALREADY_EXISTS"
	CategoryInternal         ErrorCategory = "INTERNAL"
)

// ClassifyError buckets an error message by substring. Both the server's
// status mapping and the client's toast routing depend on these markers, so
// handler messages must keep carrying them.
func ClassifyError(msg string) ErrorCategory {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "Rate limit exceeded") || strings.Contains(lower, "too fast"):
		return CategoryRateLimit
	case strings.Contains(msg, "Not authenticated") ||
		strings.Contains(lower, "invalid token") ||
		strings.Contains(lower, "invalid username or password"):
		return CategoryNotAuthenticated
	case strings.Contains(msg, "Not authorized"):
		return CategoryNotAuthorized
	case strings.Contains(lower, "not found"):
		return CategoryNotFound
	case strings.Contains(lower, "already"):
		return CategoryConflict
	case strings.Contains(lower, "failed to"):
		return CategoryInternal
	default:
		return CategoryValidation
	}
}
