package postgres

import (
	"context"

	"quizify-service/internal/domain"
)

func (s *Store) CreateContest(ctx context.Context, contest *domain.Contest) error {
	_, err := s.db.NewInsert().Model(newContestRow(*contest)).Exec(ctx)
	return err
}

func (s *Store) GetContest(ctx context.Context, contestID string) (domain.Contest, error) {
	var row contestRow
	if err := s.db.NewSelect().Model(&row).Where("c.id = ?", contestID).Scan(ctx); err != nil {
		return domain.Contest{}, notFound(err, domain.ErrContestNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) ListActiveContests(ctx context.Context) ([]domain.Contest, error) {
	var rows []contestRow
	if err := s.db.NewSelect().Model(&rows).Where("c.is_active").OrderExpr("c.start_time DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return contestsToDomain(rows), nil
}

func (s *Store) ListContestsByOwner(ctx context.Context, ownerID string) ([]domain.Contest, error) {
	var rows []contestRow
	if err := s.db.NewSelect().Model(&rows).Where("c.created_by = ?", ownerID).OrderExpr("c.created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return contestsToDomain(rows), nil
}

func (s *Store) UpdateContest(ctx context.Context, contest domain.Contest) error {
	res, err := s.db.NewUpdate().
		Model(newContestRow(contest)).
		Column("title", "description", "questions", "start_time", "end_time", "duration",
			"max_participants", "is_active", "rules", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrContestNotFound)
}

// DeleteContest relies on ON DELETE CASCADE for the contest's results.
func (s *Store) DeleteContest(ctx context.Context, contestID string) error {
	res, err := s.db.NewDelete().Model((*contestRow)(nil)).Where("id = ?", contestID).Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrContestNotFound)
}

// CreateContestResult leaves the one-submission rule to the (user_id, contest_id) unique
// constraint so concurrent submissions cannot both land.
func (s *Store) CreateContestResult(ctx context.Context, result *domain.ContestResult) error {
	_, err := s.db.NewInsert().Model(newContestResultRow(*result)).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrAlreadySubmitted
	}
	return missingParent(err, map[string]error{
		"contest_results_contest_id_fkey": domain.ErrContestNotFound,
		"contest_results_user_id_fkey":    domain.ErrUserNotFound,
	})
}

func (s *Store) GetContestResult(ctx context.Context, resultID string) (domain.ContestResult, error) {
	var row contestResultRow
	if err := s.db.NewSelect().Model(&row).Where("cr.id = ?", resultID).Scan(ctx); err != nil {
		return domain.ContestResult{}, notFound(err, domain.ErrResultNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) FindContestResult(ctx context.Context, contestID, userID string) (domain.ContestResult, bool, error) {
	var rows []contestResultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("cr.contest_id = ?", contestID).
		Where("cr.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.ContestResult{}, false, err
	}
	if len(rows) == 0 {
		return domain.ContestResult{}, false, nil
	}
	return rows[0].toDomain(), true, nil
}

func (s *Store) ListContestResults(ctx context.Context, contestID string) ([]domain.ContestResult, error) {
	if s.standings != nil {
		return s.standings.ListContestResults(ctx, contestID)
	}
	var rows []contestResultRow
	if err := s.db.NewSelect().Model(&rows).Where("cr.contest_id = ?", contestID).Scan(ctx); err != nil {
		return nil, err
	}
	return contestResultsToDomain(rows), nil
}

func (s *Store) ListContestResultsByUser(ctx context.Context, userID string) ([]domain.ContestResult, error) {
	var rows []contestResultRow
	if err := s.db.NewSelect().Model(&rows).Where("cr.user_id = ?", userID).OrderExpr("cr.submitted_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return contestResultsToDomain(rows), nil
}

func (s *Store) CountContestResults(ctx context.Context, contestID string) (int, error) {
	return s.db.NewSelect().Model((*contestResultRow)(nil)).Where("cr.contest_id = ?", contestID).Count(ctx)
}

func contestsToDomain(rows []contestRow) []domain.Contest {
	contests := make([]domain.Contest, len(rows))
	for i, row := range rows {
		contests[i] = row.toDomain()
	}
	return contests
}

func contestResultsToDomain(rows []contestResultRow) []domain.ContestResult {
	results := make([]domain.ContestResult, len(rows))
	for i, row := range rows {
		results[i] = row.toDomain()
	}
	return results
}
