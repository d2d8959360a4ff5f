package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// ContestCache keeps contests in process with a TTL so the attempt and leaderboard paths do not
// reload the question set on every request. Writes go through and evict.
type ContestCache struct {
	app.ContestRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContest
	// gen advances on every evict; a fill that started under an older gen is not stored.
	gen uint64
}

type cachedContest struct {
	contest   domain.Contest
	expiresAt time.Time
}

func NewContestCache(next app.ContestRepository, ttl time.Duration) *ContestCache {
	return &ContestCache{
		ContestRepository: next,
		ttl:               ttl,
		clock:             time.Now,
		rnd:               rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:             make(map[string]cachedContest),
	}
}

func (r *ContestCache) GetContest(ctx context.Context, contestID string) (domain.Contest, error) {
	if c, ok := r.lookup(contestID); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(contestID, func() (interface{}, error) {
		if c, ok := r.lookup(contestID); ok {
			return c, nil
		}
		r.mu.RLock()
		gen := r.gen
		r.mu.RUnlock()

		contest, err := r.ContestRepository.GetContest(ctx, contestID)
		if err != nil {
			return domain.Contest{}, err
		}

		expiresAt := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		if r.gen == gen {
			r.cache[contestID] = cachedContest{contest: cloneContest(contest), expiresAt: expiresAt}
		}
		r.mu.Unlock()
		return contest, nil
	})
	if err != nil {
		return domain.Contest{}, err
	}
	return cloneContest(result.(domain.Contest)), nil
}

func (r *ContestCache) UpdateContest(ctx context.Context, contest domain.Contest) error {
	r.evict(contest.ID)
	err := r.ContestRepository.UpdateContest(ctx, contest)
	r.evict(contest.ID)
	return err
}

func (r *ContestCache) DeleteContest(ctx context.Context, contestID string) error {
	r.evict(contestID)
	err := r.ContestRepository.DeleteContest(ctx, contestID)
	r.evict(contestID)
	return err
}

func (r *ContestCache) lookup(contestID string) (domain.Contest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[contestID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Contest{}, false
	}
	return cloneContest(entry.contest), true
}

func (r *ContestCache) evict(contestID string) {
	r.mu.Lock()
	delete(r.cache, contestID)
	r.gen++
	r.mu.Unlock()
}

func (r *ContestCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
