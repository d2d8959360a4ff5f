package memory

import (
	"context"
	"testing"
	"time"
)

func TestAttemptClockFirstStartWins(t *testing.T) {
	ctx := context.Background()
	clock := NewAttemptClock()
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	expires := time.Now().Add(time.Hour)

	got, err := clock.MarkStarted(ctx, "c1", "u1", first, expires)
	if err != nil || !got.Equal(first) {
		t.Fatalf("mark started: %v %v", got, err)
	}
	got, _ = clock.MarkStarted(ctx, "c1", "u1", first.Add(5*time.Minute), expires)
	if !got.Equal(first) {
		t.Fatalf("expected original start kept, got %v", got)
	}

	at, ok, _ := clock.StartedAt(ctx, "c1", "u1")
	if !ok || !at.Equal(first) {
		t.Fatalf("expected recorded start, got %v %v", at, ok)
	}
	if _, ok, _ := clock.StartedAt(ctx, "c1", "u2"); ok {
		t.Fatalf("expected no start for other user")
	}
}

func TestAttemptClockExpires(t *testing.T) {
	ctx := context.Background()
	clock := NewAttemptClock()
	now := time.Now()
	clock.clock = func() time.Time { return now }

	_, _ = clock.MarkStarted(ctx, "c1", "u1", now, now.Add(time.Minute))
	now = now.Add(2 * time.Minute)
	if _, ok, _ := clock.StartedAt(ctx, "c1", "u1"); ok {
		t.Fatalf("expected start to expire")
	}
}
