package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quizify-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// StandingsReader loads a contest's results straight off a pgx pool. Leaderboards are rebuilt
// on every read, so this query is the hottest one in the service.
type StandingsReader struct {
	pool *pgxpool.Pool
}

func NewStandingsReader(pool *pgxpool.Pool) *StandingsReader {
	return &StandingsReader{pool: pool}
}

func (r *StandingsReader) ListContestResults(ctx context.Context, contestID string) ([]domain.ContestResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, contest_id, score, total_questions, correct_answers, percentage,
		       time_taken, started_at, submitted_at, answers
		FROM contest_results
		WHERE contest_id = $1
		ORDER BY percentage DESC, time_taken ASC, submitted_at ASC, id ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	var results []domain.ContestResult
	for rows.Next() {
		var (
			res domain.ContestResult
			raw []byte
		)
		if err := rows.Scan(&res.ID, &res.UserID, &res.ContestID, &res.Score, &res.TotalQuestions,
			&res.CorrectAnswers, &res.Percentage, &res.TimeTaken, &res.StartedAt, &res.SubmittedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		if err := json.Unmarshal(raw, &res.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
