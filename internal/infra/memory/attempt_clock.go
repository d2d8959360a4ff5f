package memory

import (
	"context"
	"sync"
	"time"
)

// AttemptClock is an in-memory implementation of app.AttemptClock.
type AttemptClock struct {
	mu     sync.Mutex
	clock  func() time.Time
	starts map[attemptKey]attemptStart
}

type attemptKey struct {
	contestID string
	userID    string
}

type attemptStart struct {
	at        time.Time
	expiresAt time.Time
}

func NewAttemptClock() *AttemptClock {
	return NewAttemptClockWithClock(time.Now)
}

// NewAttemptClockWithClock lets tests expire starts on their own timeline.
func NewAttemptClockWithClock(clock func() time.Time) *AttemptClock {
	return &AttemptClock{
		clock:  clock,
		starts: make(map[attemptKey]attemptStart),
	}
}

func (c *AttemptClock) MarkStarted(_ context.Context, contestID, userID string, at, expiresAt time.Time) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := attemptKey{contestID: contestID, userID: userID}
	if existing, ok := c.starts[key]; ok && existing.expiresAt.After(c.clock()) {
		return existing.at, nil
	}
	c.starts[key] = attemptStart{at: at, expiresAt: expiresAt}
	c.sweepLocked()
	return at, nil
}

func (c *AttemptClock) StartedAt(_ context.Context, contestID, userID string) (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.starts[attemptKey{contestID: contestID, userID: userID}]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return time.Time{}, false, nil
	}
	return entry.at, true, nil
}

// sweepLocked drops expired starts so finished contests do not pin memory.
func (c *AttemptClock) sweepLocked() {
	now := c.clock()
	for key, entry := range c.starts {
		if !entry.expiresAt.After(now) {
			delete(c.starts, key)
		}
	}
}
