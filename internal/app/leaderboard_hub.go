package app

import "sync"

// LeaderboardHub fans out "standings changed" signals per contest. It carries no leaderboard
// data; subscribers recompute the standings themselves when signalled.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan struct{}]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{subscribers: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe returns a channel signalled after each accepted submission for contestID.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe(contestID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	subs, ok := h.subscribers[contestID]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		h.subscribers[contestID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[contestID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, contestID)
		}
	}
	return ch, cancel
}

// Notify signals every subscriber of contestID. A subscriber that has not consumed the
// previous signal keeps a single pending one.
func (h *LeaderboardHub) Notify(contestID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[contestID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports how many feeds are attached to contestID.
func (h *LeaderboardHub) Subscribers(contestID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[contestID])
}
