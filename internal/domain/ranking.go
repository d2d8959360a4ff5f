package domain

import "sort"

// Standing is a contest result with its position on the leaderboard.
type Standing struct {
	Rank   int
	Result ContestResult
}

// RankResults orders results by percentage descending, then time taken ascending, and numbers
// them 1..N. Results that tie on both keep distinct ranks; earlier submissions come first and
// the result ID settles anything left so the order never depends on storage order.
func RankResults(results []ContestResult) []Standing {
	sorted := make([]ContestResult, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		if a.TimeTaken != b.TimeTaken {
			return a.TimeTaken < b.TimeTaken
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.ID < b.ID
	})

	standings := make([]Standing, len(sorted))
	for i, r := range sorted {
		standings[i] = Standing{Rank: i + 1, Result: r}
	}
	return standings
}

// RankOfResult finds the rank of a result by ID.
func RankOfResult(standings []Standing, resultID string) (int, bool) {
	for _, s := range standings {
		if s.Result.ID == resultID {
			return s.Rank, true
		}
	}
	return 0, false
}

// RankOfUser finds the rank of a user's result.
func RankOfUser(standings []Standing, userID string) (int, bool) {
	for _, s := range standings {
		if s.Result.UserID == userID {
			return s.Rank, true
		}
	}
	return 0, false
}

// Percentile is the share of the field ranked below the given rank, rounded.
func Percentile(rank, total int) int {
	if total <= 0 {
		return 0
	}
	return ContestPercentage(total-rank, total)
}
