package memory

import (
	"context"
	"slices"

	"quizify-service/internal/domain"
)

func (s *Store) CreateContest(_ context.Context, contest *domain.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[contest.ID] = cloneContest(*contest)
	return nil
}

func (s *Store) GetContest(_ context.Context, contestID string) (domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	return cloneContest(c), nil
}

func (s *Store) ListActiveContests(_ context.Context) ([]domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var contests []domain.Contest
	for _, c := range s.contests {
		if c.IsActive {
			contests = append(contests, cloneContest(c))
		}
	}
	return contests, nil
}

func (s *Store) ListContestsByOwner(_ context.Context, ownerID string) ([]domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var contests []domain.Contest
	for _, c := range s.contests {
		if c.CreatedBy == ownerID {
			contests = append(contests, cloneContest(c))
		}
	}
	return contests, nil
}

func (s *Store) UpdateContest(_ context.Context, contest domain.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[contest.ID]; !ok {
		return domain.ErrContestNotFound
	}
	s.contests[contest.ID] = cloneContest(contest)
	return nil
}

func (s *Store) DeleteContest(_ context.Context, contestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[contestID]; !ok {
		return domain.ErrContestNotFound
	}
	for id, r := range s.contestResults {
		if r.ContestID == contestID {
			delete(s.contestResults, id)
			delete(s.submissions, submissionKey{contestID: r.ContestID, userID: r.UserID})
		}
	}
	delete(s.contests, contestID)
	return nil
}

// CreateContestResult is the single point where the one-submission-per-user rule is decided;
// the check and the insert happen under one lock.
func (s *Store) CreateContestResult(_ context.Context, result *domain.ContestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[result.ContestID]; !ok {
		return domain.ErrContestNotFound
	}
	key := submissionKey{contestID: result.ContestID, userID: result.UserID}
	if _, dup := s.submissions[key]; dup {
		return domain.ErrAlreadySubmitted
	}
	r := *result
	r.Answers = slices.Clone(result.Answers)
	s.contestResults[r.ID] = r
	s.submissions[key] = r.ID
	return nil
}

func (s *Store) GetContestResult(_ context.Context, resultID string) (domain.ContestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.contestResults[resultID]
	if !ok {
		return domain.ContestResult{}, domain.ErrResultNotFound
	}
	r.Answers = slices.Clone(r.Answers)
	return r, nil
}

func (s *Store) FindContestResult(_ context.Context, contestID, userID string) (domain.ContestResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.submissions[submissionKey{contestID: contestID, userID: userID}]
	if !ok {
		return domain.ContestResult{}, false, nil
	}
	r := s.contestResults[id]
	r.Answers = slices.Clone(r.Answers)
	return r, true, nil
}

func (s *Store) ListContestResults(_ context.Context, contestID string) ([]domain.ContestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []domain.ContestResult
	for _, r := range s.contestResults {
		if r.ContestID == contestID {
			r.Answers = slices.Clone(r.Answers)
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *Store) ListContestResultsByUser(_ context.Context, userID string) ([]domain.ContestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []domain.ContestResult
	for _, r := range s.contestResults {
		if r.UserID == userID {
			r.Answers = slices.Clone(r.Answers)
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *Store) CountContestResults(_ context.Context, contestID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.contestResults {
		if r.ContestID == contestID {
			n++
		}
	}
	return n, nil
}

func cloneContest(c domain.Contest) domain.Contest {
	c.Questions = slices.Clone(c.Questions)
	for i := range c.Questions {
		c.Questions[i].Options = slices.Clone(c.Questions[i].Options)
	}
	return c
}
