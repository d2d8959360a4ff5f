package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"quizify-service/internal/domain"

	"github.com/google/uuid"
)

// QuizService contains the quiz catalog and quiz attempt use cases.
type QuizService struct {
	quizzes QuizRepository
	results ResultRepository
	users   UserRepository
	now     func() time.Time
}

func NewQuizService(quizzes QuizRepository, results ResultRepository, users UserRepository) *QuizService {
	return NewQuizServiceWithClock(quizzes, results, users, time.Now)
}

// NewQuizServiceWithClock allows deterministic timestamps in tests.
func NewQuizServiceWithClock(quizzes QuizRepository, results ResultRepository, users UserRepository, now func() time.Time) *QuizService {
	return &QuizService{quizzes: quizzes, results: results, users: users, now: now}
}

// QuizInput is the payload for creating a quiz. A nil IsPublic means public.
type QuizInput struct {
	Title       string
	Description string
	Duration    int
	IsPublic    *bool
	Questions   []QuestionInput
}

// QuizPatch updates a quiz; nil fields are left alone and a nil Questions keeps the
// current question set.
type QuizPatch struct {
	Title       *string
	Description *string
	Duration    *int
	IsPublic    *bool
	Questions   []QuestionInput
}

// QuizListing is a public quiz as shown in the catalog.
type QuizListing struct {
	Quiz          domain.Quiz
	CreatorName   string
	QuestionCount int
}

// OwnedQuiz is an admin's quiz with its attempt count.
type OwnedQuiz struct {
	Quiz          domain.Quiz
	AttemptCount  int
	QuestionCount int
}

// AttemptQuestion is a question stripped of its answer key.
type AttemptQuestion struct {
	ID      string
	Index   int
	Text    string
	Image   string
	Options []string
}

// QuizAttempt is a quiz prepared for answering.
type QuizAttempt struct {
	Quiz        domain.Quiz
	CreatorName string
	Questions   []AttemptQuestion
}

// QuizAnswerInput is one submitted quiz answer; SelectedOption is domain.Unattempted when skipped.
type QuizAnswerInput struct {
	QuestionID     string
	SelectedOption int
	TimeSpent      int
}

// AnswerReview is a graded answer joined with its question.
type AnswerReview struct {
	QuestionText     string
	QuestionImage    string
	Options          []string
	SelectedOption   int
	CorrectOption    int
	IsCorrect        bool
	Explanation      string
	ExplanationImage string
	TimeSpent        int
}

// ResultReview is a quiz result with the answer key revealed.
type ResultReview struct {
	Result             domain.Result
	QuizTitle          string
	QuizDescription    string
	Answers            []AnswerReview
	AvgTimePerQuestion int
}

// ResultSummary is a history row.
type ResultSummary struct {
	Result          domain.Result
	QuizTitle       string
	QuizDescription string
}

// CreateQuiz stores a new quiz owned by the caller.
func (s *QuizService) CreateQuiz(ctx context.Context, p Principal, in QuizInput) (domain.Quiz, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Quiz{}, err
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return domain.Quiz{}, domain.Validation("Quiz title and description are required")
	}
	if err := validateQuestions(in.Questions); err != nil {
		return domain.Quiz{}, err
	}
	if err := validateDuration(in.Duration); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Duration:    in.Duration,
		IsPublic:    true,
		CreatedBy:   p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if quiz.Duration <= 0 {
		quiz.Duration = defaultDuration
	}
	if in.IsPublic != nil {
		quiz.IsPublic = *in.IsPublic
	}
	quiz.Questions = buildQuestions(quiz.ID, in.Questions)

	if err := s.quizzes.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// ListMyQuizzes returns the caller's quizzes, newest first.
func (s *QuizService) ListMyQuizzes(ctx context.Context, p Principal) ([]OwnedQuiz, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.ListQuizzesByOwner(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	sortQuizzesNewestFirst(quizzes)

	owned := make([]OwnedQuiz, 0, len(quizzes))
	for _, q := range quizzes {
		attempts, err := s.results.CountResultsByQuiz(ctx, q.ID)
		if err != nil {
			return nil, fmt.Errorf("count attempts: %w", err)
		}
		owned = append(owned, OwnedQuiz{Quiz: q, AttemptCount: attempts, QuestionCount: len(q.Questions)})
	}
	return owned, nil
}

// GetMyQuiz returns one of the caller's quizzes with its answer key.
func (s *QuizService) GetMyQuiz(ctx context.Context, p Principal, quizID string) (domain.Quiz, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Quiz{}, err
	}
	return s.ownedQuiz(ctx, p, quizID)
}

// UpdateQuiz edits one of the caller's quizzes.
func (s *QuizService) UpdateQuiz(ctx context.Context, p Principal, quizID string, patch QuizPatch) (domain.Quiz, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.ownedQuiz(ctx, p, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		quiz.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil && *patch.Description != "" {
		quiz.Description = *patch.Description
	}
	if patch.Duration != nil && *patch.Duration > 0 {
		if err := validateDuration(*patch.Duration); err != nil {
			return domain.Quiz{}, err
		}
		quiz.Duration = *patch.Duration
	}
	if patch.IsPublic != nil {
		quiz.IsPublic = *patch.IsPublic
	}
	replace := patch.Questions != nil
	if replace {
		if err := validateQuestions(patch.Questions); err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = buildQuestions(quiz.ID, patch.Questions)
	}
	quiz.UpdatedAt = s.now()

	if err := s.quizzes.UpdateQuiz(ctx, quiz, replace); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	return quiz, nil
}

// DeleteQuiz removes one of the caller's quizzes with its questions and results.
func (s *QuizService) DeleteQuiz(ctx context.Context, p Principal, quizID string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if _, err := s.ownedQuiz(ctx, p, quizID); err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

// ListAvailable returns every public quiz, newest first.
func (s *QuizService) ListAvailable(ctx context.Context) ([]QuizListing, error) {
	quizzes, err := s.quizzes.ListPublicQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	sortQuizzesNewestFirst(quizzes)

	creators := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		creators = append(creators, q.CreatedBy)
	}
	users, err := s.users.GetUsers(ctx, creators)
	if err != nil {
		return nil, fmt.Errorf("load creators: %w", err)
	}

	listings := make([]QuizListing, 0, len(quizzes))
	for _, q := range quizzes {
		listings = append(listings, QuizListing{
			Quiz:          withoutQuestions(q),
			CreatorName:   users[q.CreatedBy].Name,
			QuestionCount: len(q.Questions),
		})
	}
	return listings, nil
}

// GetForAttempt returns the quiz without answers. Private quizzes are visible to their owner only.
func (s *QuizService) GetForAttempt(ctx context.Context, p Principal, quizID string) (QuizAttempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizAttempt{}, err
	}
	if !quiz.IsPublic && quiz.CreatedBy != p.UserID {
		return QuizAttempt{}, domain.ErrQuizAccess
	}

	creator := ""
	if users, err := s.users.GetUsers(ctx, []string{quiz.CreatedBy}); err == nil {
		creator = users[quiz.CreatedBy].Name
	}

	questions := make([]AttemptQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = AttemptQuestion{ID: q.ID, Index: i, Text: q.Text, Image: q.Image, Options: q.Options}
	}
	return QuizAttempt{Quiz: withoutQuestions(quiz), CreatorName: creator, Questions: questions}, nil
}

// Submit grades the answers and stores a new result. Repeat attempts are allowed and each
// one creates its own result.
func (s *QuizService) Submit(ctx context.Context, p Principal, quizID string, answers []QuizAnswerInput, totalTimeTaken int) (domain.Result, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	if !quiz.IsPublic && quiz.CreatedBy != p.UserID {
		return domain.Result{}, domain.ErrQuizAccess
	}

	byID := make(map[string]domain.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		byID[q.ID] = q
	}

	// The first answer for a question wins, as on the contest path.
	graded := make([]domain.QuizAnswer, 0, len(answers))
	seen := make(map[string]bool, len(answers))
	score := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		if a.SelectedOption < domain.Unattempted || a.SelectedOption >= len(q.Options) {
			return domain.Result{}, domain.Validation("Selected option is out of range")
		}
		correct := a.SelectedOption == q.CorrectOption
		if correct {
			score++
		}
		graded = append(graded, domain.QuizAnswer{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      correct,
			TimeSpent:      max(a.TimeSpent, 0),
		})
	}

	total := len(quiz.Questions)
	result := domain.Result{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		QuizID:         quiz.ID,
		Answers:        graded,
		TotalTimeTaken: max(totalTimeTaken, 0),
		Score:          score,
		TotalQuestions: total,
		Percentage:     domain.QuizPercentage(score, total),
		SubmittedAt:    s.now(),
	}
	if err := s.results.CreateResult(ctx, &result); err != nil {
		return domain.Result{}, fmt.Errorf("save result: %w", err)
	}
	return result, nil
}

// ResultDetails reveals the answer key for one of the caller's results. The average time per
// question is derived from the quiz's allotted duration.
func (s *QuizService) ResultDetails(ctx context.Context, p Principal, resultID string) (ResultReview, error) {
	result, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return ResultReview{}, err
	}
	if result.UserID != p.UserID {
		return ResultReview{}, domain.ErrResultForbidden
	}
	quiz, err := s.quizzes.GetQuiz(ctx, result.QuizID)
	if err != nil {
		return ResultReview{}, err
	}

	byID := make(map[string]domain.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		byID[q.ID] = q
	}
	reviews := make([]AnswerReview, 0, len(result.Answers))
	for _, a := range result.Answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			// question set was replaced after this attempt
			continue
		}
		reviews = append(reviews, AnswerReview{
			QuestionText:     q.Text,
			QuestionImage:    q.Image,
			Options:          q.Options,
			SelectedOption:   a.SelectedOption,
			CorrectOption:    q.CorrectOption,
			IsCorrect:        a.IsCorrect,
			Explanation:      q.Explanation,
			ExplanationImage: q.ExplanationImage,
			TimeSpent:        a.TimeSpent,
		})
	}

	avg := 0
	if result.TotalQuestions > 0 {
		avg = int(math.Round(float64(quiz.Duration*60) / float64(result.TotalQuestions)))
	}
	return ResultReview{
		Result:             result,
		QuizTitle:          quiz.Title,
		QuizDescription:    quiz.Description,
		Answers:            reviews,
		AvgTimePerQuestion: avg,
	}, nil
}

// History lists the caller's quiz results, newest first.
func (s *QuizService) History(ctx context.Context, p Principal) ([]ResultSummary, error) {
	results, err := s.results.ListResultsByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SubmittedAt.After(results[j].SubmittedAt)
	})

	quizzes := make(map[string]domain.Quiz)
	summaries := make([]ResultSummary, 0, len(results))
	for _, r := range results {
		quiz, ok := quizzes[r.QuizID]
		if !ok {
			quiz, err = s.quizzes.GetQuiz(ctx, r.QuizID)
			if err != nil && !errors.Is(err, domain.ErrQuizNotFound) {
				return nil, err
			}
			quizzes[r.QuizID] = quiz
		}
		summaries = append(summaries, ResultSummary{Result: r, QuizTitle: quiz.Title, QuizDescription: quiz.Description})
	}
	return summaries, nil
}

// DeleteResult removes one of the caller's results from their history.
func (s *QuizService) DeleteResult(ctx context.Context, p Principal, resultID string) error {
	result, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return err
	}
	if result.UserID != p.UserID {
		return domain.NewError(domain.KindAuthorization, "Unauthorized to delete this result")
	}
	if err := s.results.DeleteResult(ctx, resultID); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, p Principal, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatedBy != p.UserID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func buildQuestions(quizID string, inputs []QuestionInput) []domain.Question {
	questions := make([]domain.Question, len(inputs))
	for i, in := range inputs {
		questions[i] = domain.Question{
			ID:               uuid.NewString(),
			QuizID:           quizID,
			Position:         i,
			Text:             strings.TrimSpace(in.Text),
			Image:            in.Image,
			Options:          in.Options,
			CorrectOption:    in.CorrectOption,
			Explanation:      in.Explanation,
			ExplanationImage: in.ExplanationImage,
		}
	}
	return questions
}

// withoutQuestions keeps the question count reachable through the listing types only.
func withoutQuestions(q domain.Quiz) domain.Quiz {
	q.Questions = nil
	return q
}

func sortQuizzesNewestFirst(quizzes []domain.Quiz) {
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
}
