package model

import (
	"time"
)

/*

RateLimitWindow is the fixed-window counter row behind the rate limiter
registry

Name: limiter name, e.g. "commentsBurst"
Key: the limited principal, typically the acting user's id
WindowStart: when the current window opened. A row older than the limiter's
             period is reset in place instead of deleted.
Count: tokens consumed inside the current window

The row is always read under SELECT ... FOR UPDATE inside the mutation's
transaction, so a refused consumption never leaks a token and a successful
one commits atomically with the domain write.

*/
type RateLimitWindow struct {
	Name        string `gorm:"primaryKey"`
	Key         string `gorm:"primaryKey"`
	WindowStart time.Time
	Count       int
}
