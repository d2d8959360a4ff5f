package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"quizify-service/internal/domain"
	"quizify-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestContestCacheCachesInRedis(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	backing := &countingContests{Store: memory.NewStore()}
	_ = backing.CreateContest(ctx, sampleContest())
	repo := NewContestCache(client, backing, time.Minute)

	got, err := repo.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("get contest: %v", err)
	}
	if backing.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", backing.calls.Load())
	}
	if !mr.Exists("contest:c1") {
		t.Fatalf("expected redis snapshot")
	}

	// Second call should hit cache, loader not incremented.
	again, _ := repo.GetContest(ctx, "c1")
	if backing.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", backing.calls.Load())
	}
	if again.Title != got.Title || len(again.Questions) != 1 || again.Questions[0].CorrectOption != 1 {
		t.Fatalf("cached contest differs: %+v", again)
	}
	if !again.StartTime.Equal(got.StartTime) {
		t.Fatalf("start time not preserved")
	}
}

func TestContestCacheEvictsOnWrite(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	backing := &countingContests{Store: memory.NewStore()}
	_ = backing.CreateContest(ctx, sampleContest())
	repo := NewContestCache(client, backing, time.Minute)

	contest, _ := repo.GetContest(ctx, "c1")
	contest.Title = "Renamed"
	if err := repo.UpdateContest(ctx, contest); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mr.Exists("contest:c1") {
		t.Fatalf("expected snapshot evicted on update")
	}
	got, _ := repo.GetContest(ctx, "c1")
	if got.Title != "Renamed" {
		t.Fatalf("expected fresh title, got %q", got.Title)
	}

	if err := repo.DeleteContest(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetContest(ctx, "c1"); !errors.Is(err, domain.ErrContestNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestContestCacheDropsFillRacingDelete(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	backing := &countingContests{Store: memory.NewStore()}
	_ = backing.CreateContest(ctx, sampleContest())
	repo := NewContestCache(client, backing, time.Minute)
	backing.afterLoad = func() {
		if err := repo.DeleteContest(ctx, "c1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}

	if _, err := repo.GetContest(ctx, "c1"); err != nil {
		t.Fatalf("in-flight read should still return its snapshot: %v", err)
	}
	if mr.Exists("contest:c1") {
		t.Fatalf("expected stale fill to be discarded")
	}
	if _, err := repo.GetContest(ctx, "c1"); !errors.Is(err, domain.ErrContestNotFound) {
		t.Fatalf("expected deleted contest to stay gone, got %v", err)
	}
}

func TestContestCacheSurvivesRedisOutage(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	backing := &countingContests{Store: memory.NewStore()}
	_ = backing.CreateContest(ctx, sampleContest())
	repo := NewContestCache(client, backing, time.Minute)

	mr.Close()
	if _, err := repo.GetContest(ctx, "c1"); err != nil {
		t.Fatalf("expected fallback to backing store, got %v", err)
	}
}

func TestAttemptClockFirstStartWins(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	clock := NewAttemptClock(client)
	first := time.Now().UTC().Truncate(time.Second)
	expires := first.Add(time.Hour)

	got, err := clock.MarkStarted(ctx, "c1", "u1", first, expires)
	if err != nil || !got.Equal(first) {
		t.Fatalf("mark started: %v %v", got, err)
	}
	got, err = clock.MarkStarted(ctx, "c1", "u1", first.Add(time.Minute), expires)
	if err != nil || !got.Equal(first) {
		t.Fatalf("expected original start, got %v %v", got, err)
	}
	if ttl := mr.TTL("contest:c1:start:u1"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	at, ok, err := clock.StartedAt(ctx, "c1", "u1")
	if err != nil || !ok || !at.Equal(first) {
		t.Fatalf("started at: %v %v %v", at, ok, err)
	}
	if _, ok, _ := clock.StartedAt(ctx, "c1", "u2"); ok {
		t.Fatalf("expected no start for other user")
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := clock.StartedAt(ctx, "c1", "u1"); ok {
		t.Fatalf("expected start to expire")
	}
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type countingContests struct {
	*memory.Store
	calls atomic.Int32
	// afterLoad runs once the backing read returns, before the cache sees the result.
	afterLoad func()
}

func (c *countingContests) GetContest(ctx context.Context, contestID string) (domain.Contest, error) {
	c.calls.Add(1)
	contest, err := c.Store.GetContest(ctx, contestID)
	if hook := c.afterLoad; hook != nil {
		c.afterLoad = nil
		hook()
	}
	return contest, err
}

func sampleContest() *domain.Contest {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Contest{
		ID:        "c1",
		Title:     "Weekly",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Duration:  30,
		IsActive:  true,
		Questions: []domain.ContestQuestion{
			{Text: "2+2", Options: []string{"3", "4"}, CorrectOption: 1},
		},
	}
}
