package client

import (
	"context"
	"sync"
	"time"
)

// DefaultStaleness bounds how long an optimistic override can shadow server
// state before it is force-cleared. Matching the UI contract it sits between
// 3 and 5 seconds.
const DefaultStaleness = 4 * time.Second

// Phase of a reconciled value.
type Phase int

const (
	// PhaseNone means no value is held yet.
	PhaseNone Phase = iota
	// PhaseOptimistic means the value is a local flip awaiting the server.
	PhaseOptimistic
	// PhaseConfirmed means the value came from, or was accepted by, the
	// server.
	PhaseConfirmed
)

/*

State is one client-held value under reconciliation. It is a pure value:
every transition returns a new State and never mutates the receiver, so the
transitions can be replayed and unit-tested without a clock or a lock.

An Apply captures the pre-flip state inside the override, which is what makes
Rollback self-contained. AppliedAt is only meaningful while the phase is
PhaseOptimistic.

*/
type State[T any] struct {
	Phase     Phase
	Value     T
	AppliedAt time.Time

	priorPhase Phase
	priorValue T
}

// Apply flips to an optimistic override stamped at t.
func (s State[T]) Apply(value T, t time.Time) State[T] {
	return State[T]{
		Phase:      PhaseOptimistic,
		Value:      value,
		AppliedAt:  t,
		priorPhase: s.Phase,
		priorValue: s.Value,
	}
}

// Confirm adopts the server's value and drops any override.
func (s State[T]) Confirm(value T) State[T] {
	return State[T]{Phase: PhaseConfirmed, Value: value}
}

// Rollback restores the value from before the last Apply. No-op unless an
// override is active.
func (s State[T]) Rollback() State[T] {
	if s.Phase != PhaseOptimistic {
		return s
	}
	return State[T]{Phase: s.priorPhase, Value: s.priorValue}
}

// ServerValue reconciles a pushed or refetched server value at time t. An
// optimistic override younger than the staleness window keeps shadowing the
// server; anything older, or any non-override state, adopts it.
func (s State[T]) ServerValue(value T, t time.Time, staleness time.Duration) State[T] {
	if s.Phase == PhaseOptimistic && t.Sub(s.AppliedAt) < staleness {
		return s
	}
	return State[T]{Phase: PhaseConfirmed, Value: value}
}

// Expire clears an override stamped at or before t. The flipped value stays
// on display but stops shadowing server values, so a delayed refetch can
// finally take over and the UI can never stick.
func (s State[T]) Expire(t time.Time) State[T] {
	if s.Phase != PhaseOptimistic || s.AppliedAt.After(t) {
		return s
	}
	return State[T]{Phase: PhaseConfirmed, Value: s.Value}
}

/*

Tracker wraps the State reducer with a mutex and the staleness schedule. The
schedule is a cancellation token, not a polling loop: each Apply arms one
time.AfterFunc carrying its own stamp, and the expiry compares stamps inside
the reducer, so a timer from an overwritten Apply falls through as a no-op
even when it cannot be stopped in time.

*/
type Tracker[T any] struct {
	mu        sync.Mutex
	state     State[T]
	staleness time.Duration
	expiry    *time.Timer
	now       func() time.Time
}

func NewTracker[T any]() *Tracker[T] {
	return NewTrackerWithClock[T](DefaultStaleness, time.Now)
}

func NewTrackerWithClock[T any](staleness time.Duration, now func() time.Time) *Tracker[T] {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Tracker[T]{staleness: staleness, now: now}
}

// Get returns the current value with its phase.
func (t *Tracker[T]) Get() (T, Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Value, t.state.Phase
}

// Apply installs an optimistic override and schedules its staleness clear.
func (t *Tracker[T]) Apply(value T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stamp := t.now()
	t.state = t.state.Apply(value, stamp)
	if t.expiry != nil {
		t.expiry.Stop()
	}
	t.expiry = time.AfterFunc(t.staleness, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.state = t.state.Expire(stamp)
	})
}

// Confirm settles the value and cancels the pending staleness clear.
func (t *Tracker[T]) Confirm(value T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = t.state.Confirm(value)
	t.stopExpiry()
}

// Rollback reverts the last Apply and cancels the pending staleness clear.
func (t *Tracker[T]) Rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = t.state.Rollback()
	t.stopExpiry()
}

// ServerValue feeds a refetched or pushed server value through the reducer.
func (t *Tracker[T]) ServerValue(value T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = t.state.ServerValue(value, t.now(), t.staleness)
}

// Close stops the pending staleness timer, for components going away.
func (t *Tracker[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopExpiry()
}

func (t *Tracker[T]) stopExpiry() {
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
}

// MutateFunc performs the server mutation for a toggle flipped to next.
type MutateFunc func(ctx context.Context, next bool) error

// ToastFunc surfaces a classified mutation failure to the user.
type ToastFunc func(category ToastCategory, err error)

/*

Toggle is the shared contract of every boolean control: flip locally first,
mutate, then either settle the flip or roll it back with a classified toast.
Wire its ServerValue to the matching query refetch and signal updates.

*/
type Toggle struct {
	tracker *Tracker[bool]
	mutate  MutateFunc
	toast   ToastFunc
}

func NewToggle(mutate MutateFunc, toast ToastFunc) *Toggle {
	return &Toggle{tracker: NewTracker[bool](), mutate: mutate, toast: toast}
}

// NewToggleWithTracker lets tests install a tracker with a custom clock.
func NewToggleWithTracker(tracker *Tracker[bool], mutate MutateFunc, toast ToastFunc) *Toggle {
	return &Toggle{tracker: tracker, mutate: mutate, toast: toast}
}

// Value is what the control renders right now.
func (t *Toggle) Value() bool {
	value, _ := t.tracker.Get()
	return value
}

// ServerValue reconciles a server-side reading of the toggle.
func (t *Toggle) ServerValue(value bool) {
	t.tracker.ServerValue(value)
}

// Flip applies the optimistic flip, runs the mutation, and reconciles.
// Returns the settled value.
func (t *Toggle) Flip(ctx context.Context) bool {
	current, _ := t.tracker.Get()
	next := !current

	t.tracker.Apply(next)
	if err := t.mutate(ctx, next); err != nil {
		t.tracker.Rollback()
		if t.toast != nil {
			t.toast(Categorize(err), err)
		}
		return t.Value()
	}
	t.tracker.Confirm(next)
	return next
}

// Close releases the underlying tracker's timer.
func (t *Toggle) Close() {
	t.tracker.Close()
}
