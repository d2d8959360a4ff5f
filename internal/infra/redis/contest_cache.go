package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/domain"
	"quizify-service/internal/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ContestCache keeps a JSON snapshot of each contest in Redis and falls back to the wrapped
// repository on a miss. Updates and deletes evict the snapshot. Standings are never cached.
type ContestCache struct {
	app.ContestRepository
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand

	// fillMu orders cache fills against evictions; gen advances on every evict and a fill that
	// started under an older gen is not stored.
	fillMu sync.Mutex
	gen    uint64
}

func NewContestCache(client *redis.Client, next app.ContestRepository, ttl time.Duration) *ContestCache {
	return &ContestCache{
		ContestRepository: next,
		client:            client,
		ttl:               ttl,
		rnd:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContestCache) GetContest(ctx context.Context, contestID string) (domain.Contest, error) {
	if contest, ok := r.cached(ctx, contestID); ok {
		metrics.CacheHits.Inc()
		return contest, nil
	}
	metrics.CacheMisses.Inc()

	result, err, _ := r.sf.Do(contestID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if contest, ok := r.cached(ctx, contestID); ok {
			return contest, nil
		}
		r.fillMu.Lock()
		gen := r.gen
		r.fillMu.Unlock()

		contest, err := r.ContestRepository.GetContest(ctx, contestID)
		if err != nil {
			return domain.Contest{}, err
		}
		r.store(ctx, contest, gen)
		return contest, nil
	})
	if err != nil {
		return domain.Contest{}, err
	}
	return result.(domain.Contest), nil
}

func (r *ContestCache) UpdateContest(ctx context.Context, contest domain.Contest) error {
	if err := r.ContestRepository.UpdateContest(ctx, contest); err != nil {
		return err
	}
	r.evict(ctx, contest.ID)
	return nil
}

func (r *ContestCache) DeleteContest(ctx context.Context, contestID string) error {
	if err := r.ContestRepository.DeleteContest(ctx, contestID); err != nil {
		return err
	}
	r.evict(ctx, contestID)
	return nil
}

func (r *ContestCache) cached(ctx context.Context, contestID string) (domain.Contest, bool) {
	payload, err := r.client.Get(ctx, r.key(contestID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("contest cache read failed id=%s: %v", contestID, err)
		}
		return domain.Contest{}, false
	}
	var contest domain.Contest
	if err := json.Unmarshal(payload, &contest); err != nil {
		return domain.Contest{}, false
	}
	return contest, true
}

// store writes the snapshot unless an evict happened since gen was read.
func (r *ContestCache) store(ctx context.Context, contest domain.Contest, gen uint64) {
	payload, err := json.Marshal(contest)
	if err != nil {
		return
	}
	ttl := r.ttlWithJitter()
	r.fillMu.Lock()
	defer r.fillMu.Unlock()
	if r.gen != gen {
		return
	}
	if err := r.client.Set(ctx, r.key(contest.ID), payload, ttl).Err(); err != nil {
		log.Printf("contest cache write failed id=%s: %v", contest.ID, err)
	}
}

func (r *ContestCache) evict(ctx context.Context, contestID string) {
	r.fillMu.Lock()
	defer r.fillMu.Unlock()
	r.gen++
	if err := r.client.Del(ctx, r.key(contestID)).Err(); err != nil {
		log.Printf("contest cache evict failed id=%s: %v", contestID, err)
	}
}

func (r *ContestCache) key(contestID string) string {
	return "contest:" + contestID
}

func (r *ContestCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
