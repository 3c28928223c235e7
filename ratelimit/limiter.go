package ratelimit

import (
	"context"
	"time"

	"gorm.io/gorm"
)

/*
Result of one limiter attempt. RetryAfter is only set on refusal and holds
the time until the current window expires.
*/
type Result struct {
	Ok         bool
	RetryAfter time.Duration
}

/*
Store is the fixed-window counter backend. Take consumes n tokens when they
fit and consumes nothing otherwise. Peek answers whether n tokens would fit
without consuming any. Both receive the caller's clock so windows stay
testable.
*/
type Store interface {
	Take(ctx context.Context, def Definition, key string, n int, now time.Time) (Result, error)
	Peek(ctx context.Context, def Definition, key string, n int, now time.Time) (Result, error)
}

// TxBinder is implemented by stores whose counters can join a database
// transaction, so a rolled back mutation also rolls back its tokens.
type TxBinder interface {
	WithTx(tx *gorm.DB) Store
}

/*
Limiter resolves names against the registry and drives a Store. One Limiter
is shared by all handlers; Within derives a transaction-scoped view.
*/
type Limiter struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// NewWithClock is for tests that step time manually.
func NewWithClock(store Store, now func() time.Time) *Limiter {
	return &Limiter{store: store, now: now}
}

// Within binds the limiter to tx when the backend supports it, otherwise
// returns the limiter unchanged.
func (l *Limiter) Within(tx *gorm.DB) *Limiter {
	if b, ok := l.store.(TxBinder); ok {
		return &Limiter{store: b.WithTx(tx), now: l.now}
	}
	return l
}

// Limit consumes one token from the named limiter. A refusal consumes
// nothing.
func (l *Limiter) Limit(ctx context.Context, key string, name string) (Result, error) {
	def, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}
	return l.store.Take(ctx, def, key, 1, l.now())
}

// Check is the dry run used by quota introspection: would n tokens fit right
// now. Nothing is consumed.
func (l *Limiter) Check(ctx context.Context, key string, name string, n int) (Result, error) {
	def, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}
	return l.store.Peek(ctx, def, key, n, l.now())
}

// ConsumeTiers takes one token from each named limiter in order and returns
// the refusal error of the first exhausted tier. All tiers are dry-run
// checked before any token is taken, so a refusal leaves every tier
// untouched.
func (l *Limiter) ConsumeTiers(ctx context.Context, key string, names ...string) error {
	now := l.now()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		def, err := Lookup(name)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}
	for _, def := range defs {
		res, err := l.store.Peek(ctx, def, key, 1, now)
		if err != nil {
			return err
		}
		if !res.Ok {
			return def.RefusalError(res.RetryAfter)
		}
	}
	for _, def := range defs {
		res, err := l.store.Take(ctx, def, key, 1, now)
		if err != nil {
			return err
		}
		if !res.Ok {
			// Lost a race between the check and the take.
			return def.RefusalError(res.RetryAfter)
		}
	}
	return nil
}
