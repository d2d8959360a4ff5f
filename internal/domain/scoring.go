package domain

import (
	"math"
	"time"
)

// QuizPercentage is rounded to two decimals: 1 of 3 gives 33.33.
func QuizPercentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	raw := float64(score) / float64(total) * 100
	return math.Round(raw*100) / 100
}

// ContestPercentage is rounded to a whole number: 7 of 10 gives 70.
func ContestPercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// SubmittedAnswer is what a participant sends for one contest question.
type SubmittedAnswer struct {
	QuestionIndex  int
	SelectedOption *int
	TimeSpent      int
}

// ScoreContest walks the contest's own question list so every question yields exactly one
// answer record, whatever the client omitted or duplicated. The first submitted answer for an
// index wins.
func ScoreContest(questions []ContestQuestion, submitted []SubmittedAnswer) ([]ContestAnswer, int) {
	byIndex := make(map[int]SubmittedAnswer, len(submitted))
	for _, s := range submitted {
		if _, seen := byIndex[s.QuestionIndex]; !seen {
			byIndex[s.QuestionIndex] = s
		}
	}

	answers := make([]ContestAnswer, len(questions))
	correct := 0
	for i, q := range questions {
		answer := ContestAnswer{QuestionIndex: i}
		if s, ok := byIndex[i]; ok {
			answer.SelectedOption = s.SelectedOption
			answer.TimeSpent = s.TimeSpent
			answer.IsCorrect = s.SelectedOption != nil && *s.SelectedOption == q.CorrectOption
		}
		if answer.IsCorrect {
			correct++
		}
		answers[i] = answer
	}
	return answers, correct
}

// MaxDuration caps quiz and contest durations, in minutes.
const MaxDuration = 24 * 60

// EffectiveDuration is the attempt allowance in whole minutes: the nominal duration, cut
// short by the time left before the contest closes.
func EffectiveDuration(c Contest, now time.Time) int {
	allowance := time.Duration(min(c.Duration, MaxDuration)) * time.Minute
	if remaining := c.EndTime.Sub(now); remaining < allowance {
		allowance = remaining
	}
	if allowance < 0 {
		return 0
	}
	return int(allowance / time.Minute)
}

// ElapsedSeconds rounds the span between two instants to whole seconds.
func ElapsedSeconds(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Seconds()))
}
