package sellers

import (
	"sync"
	"time"
)

// MaxAttempts bounds OTP guesses within a single registration session.
const MaxAttempts = 3

type attemptState struct {
	count   int
	lastTry time.Time
}

// AttemptTracker counts OTP verification attempts per user. Counters live in
// process memory only and are never shared across instances; an instance is
// injected where needed so tests can run with isolated trackers.
type AttemptTracker struct {
	mu       sync.Mutex
	attempts map[int64]*attemptState
}

// NewAttemptTracker returns an empty tracker.
func NewAttemptTracker() *AttemptTracker {
	return &AttemptTracker{attempts: make(map[int64]*attemptState)}
}

// Reset initializes or overwrites the counter for userID to zero.
func (t *AttemptTracker) Reset(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[userID] = &attemptState{lastTry: time.Now()}
}

// Record counts one attempt and returns the new count. A missing entry is
// implicitly reset first, so the first recorded attempt yields 1.
func (t *AttemptTracker) Record(userID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.attempts[userID]
	if !ok {
		st = &attemptState{}
		t.attempts[userID] = st
	}
	st.count++
	st.lastTry = time.Now()
	return st.count
}

// Remaining returns MaxAttempts minus the current count, floored at zero.
// A user without an entry has all attempts remaining.
func (t *AttemptTracker) Remaining(userID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.attempts[userID]
	if !ok {
		return MaxAttempts
	}
	remaining := MaxAttempts - st.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clear removes all tracking state for userID.
func (t *AttemptTracker) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, userID)
}

// Tracked reports whether an entry exists for userID.
func (t *AttemptTracker) Tracked(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.attempts[userID]
	return ok
}
