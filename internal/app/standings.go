package app

import (
	"context"
	"fmt"
	"time"

	"quizify-service/internal/domain"
	"quizify-service/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// Placement is one result's position within its contest at the moment of reading.
type Placement struct {
	Result            domain.ContestResult
	Rank              int
	TotalParticipants int
	Percentile        int
}

// standingsFor ranks every result of a contest. It is recomputed on each call; there is no
// cache to invalidate.
func standingsFor(ctx context.Context, repo ContestResultRepository, contestID string) ([]domain.Standing, error) {
	start := time.Now()
	results, err := repo.ListContestResults(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load contest results: %w", err)
	}
	standings := domain.RankResults(results)
	metrics.RecordLeaderboard(start)
	return standings, nil
}

// placeResults ranks each given result inside its own contest.
func placeResults(ctx context.Context, repo ContestResultRepository, results []domain.ContestResult) ([]Placement, error) {
	placements := make([]Placement, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			standings, err := standingsFor(gctx, repo, r.ContestID)
			if err != nil {
				return err
			}
			total := len(standings)
			rank, ok := domain.RankOfResult(standings, r.ID)
			if !ok {
				// The result was read before a concurrent delete of its contest.
				total++
				rank = total
			}
			placements[i] = Placement{
				Result:            r,
				Rank:              rank,
				TotalParticipants: total,
				Percentile:        domain.Percentile(rank, total),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return placements, nil
}
