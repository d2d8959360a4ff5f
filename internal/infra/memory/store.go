package memory

import (
	"context"
	"slices"
	"sync"

	"quizify-service/internal/domain"
)

// Store is an in-process implementation of every app repository. It enforces the same
// uniqueness rules and delete cascades as the Postgres schema.
type Store struct {
	mu             sync.RWMutex
	users          map[string]domain.User
	emails         map[string]string
	quizzes        map[string]domain.Quiz
	results        map[string]domain.Result
	contests       map[string]domain.Contest
	contestResults map[string]domain.ContestResult
	// submissions indexes contest results by contest and user.
	submissions map[submissionKey]string
}

type submissionKey struct {
	contestID string
	userID    string
}

func NewStore() *Store {
	return &Store{
		users:          make(map[string]domain.User),
		emails:         make(map[string]string),
		quizzes:        make(map[string]domain.Quiz),
		results:        make(map[string]domain.Result),
		contests:       make(map[string]domain.Contest),
		contestResults: make(map[string]domain.ContestResult),
		submissions:    make(map[submissionKey]string),
	}
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[user.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = *user
	s.emails[user.Email] = user.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

// GetUsers returns the users it knows about; unknown IDs are left out of the map.
func (s *Store) GetUsers(_ context.Context, userIDs []string) (map[string]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]domain.User, len(userIDs))
	for _, id := range userIDs {
		if user, ok := s.users[id]; ok {
			found[id] = user
		}
	}
	return found, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	// email is the uniqueness key and never changes through an update
	user.Email = current.Email
	s.users[user.ID] = user
	return nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = cloneQuiz(*quiz)
	return nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *Store) ListPublicQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizzes []domain.Quiz
	for _, q := range s.quizzes {
		if q.IsPublic {
			quizzes = append(quizzes, cloneQuiz(q))
		}
	}
	return quizzes, nil
}

func (s *Store) ListQuizzesByOwner(_ context.Context, ownerID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizzes []domain.Quiz
	for _, q := range s.quizzes {
		if q.CreatedBy == ownerID {
			quizzes = append(quizzes, cloneQuiz(q))
		}
	}
	return quizzes, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz, replaceQuestions bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	if !replaceQuestions {
		quiz.Questions = current.Questions
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	for id, r := range s.results {
		if r.QuizID == quizID {
			delete(s.results, id)
		}
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) CreateResult(_ context.Context, result *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[result.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	r := *result
	r.Answers = slices.Clone(result.Answers)
	s.results[r.ID] = r
	return nil
}

func (s *Store) GetResult(_ context.Context, resultID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[resultID]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	r.Answers = slices.Clone(r.Answers)
	return r, nil
}

func (s *Store) ListResultsByUser(_ context.Context, userID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []domain.Result
	for _, r := range s.results {
		if r.UserID == userID {
			r.Answers = slices.Clone(r.Answers)
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *Store) CountResultsByQuiz(_ context.Context, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.results {
		if r.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteResult(_ context.Context, resultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[resultID]; !ok {
		return domain.ErrResultNotFound
	}
	delete(s.results, resultID)
	return nil
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	q.Questions = slices.Clone(q.Questions)
	for i := range q.Questions {
		q.Questions[i].Options = slices.Clone(q.Questions[i].Options)
	}
	return q
}
