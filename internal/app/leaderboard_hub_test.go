package app

import "testing"

func TestLeaderboardHubCoalescesSignals(t *testing.T) {
	hub := NewLeaderboardHub()
	ch, cancel := hub.Subscribe("c1")

	hub.Notify("c1")
	hub.Notify("c1")
	hub.Notify("other")

	<-ch
	select {
	case <-ch:
		t.Fatalf("expected a single pending signal")
	default:
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	if hub.Subscribers("c1") != 0 {
		t.Fatalf("expected no subscribers left")
	}
	cancel()
}
