package app

import (
	"context"
	"io"
	"time"

	"quizify-service/internal/domain"
)

// UserRepository persists accounts. Emails are unique; a clash yields domain.ErrEmailTaken.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUsers(ctx context.Context, userIDs []string) (map[string]domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) error
}

// QuizRepository stores quizzes together with their ordered questions.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListPublicQuizzes(ctx context.Context) ([]domain.Quiz, error)
	ListQuizzesByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	// UpdateQuiz saves quiz fields; with replaceQuestions the stored question set is swapped
	// for quiz.Questions as one batch.
	UpdateQuiz(ctx context.Context, quiz domain.Quiz, replaceQuestions bool) error
	// DeleteQuiz removes the quiz, its questions and its results.
	DeleteQuiz(ctx context.Context, quizID string) error
}

// ResultRepository stores quiz attempts.
type ResultRepository interface {
	CreateResult(ctx context.Context, result *domain.Result) error
	GetResult(ctx context.Context, resultID string) (domain.Result, error)
	ListResultsByUser(ctx context.Context, userID string) ([]domain.Result, error)
	CountResultsByQuiz(ctx context.Context, quizID string) (int, error)
	DeleteResult(ctx context.Context, resultID string) error
}

// ContestRepository stores contests with their embedded questions.
type ContestRepository interface {
	CreateContest(ctx context.Context, contest *domain.Contest) error
	GetContest(ctx context.Context, contestID string) (domain.Contest, error)
	ListActiveContests(ctx context.Context) ([]domain.Contest, error)
	ListContestsByOwner(ctx context.Context, ownerID string) ([]domain.Contest, error)
	UpdateContest(ctx context.Context, contest domain.Contest) error
	// DeleteContest removes the contest and every result submitted for it.
	DeleteContest(ctx context.Context, contestID string) error
}

// ContestResultRepository stores contest submissions. Implementations must reject a second
// result for the same (user, contest) pair with domain.ErrAlreadySubmitted.
type ContestResultRepository interface {
	CreateContestResult(ctx context.Context, result *domain.ContestResult) error
	GetContestResult(ctx context.Context, resultID string) (domain.ContestResult, error)
	FindContestResult(ctx context.Context, contestID, userID string) (domain.ContestResult, bool, error)
	ListContestResults(ctx context.Context, contestID string) ([]domain.ContestResult, error)
	ListContestResultsByUser(ctx context.Context, userID string) ([]domain.ContestResult, error)
	CountContestResults(ctx context.Context, contestID string) (int, error)
}

// AttemptClock remembers when a participant opened a contest so elapsed time is measured on
// the server.
type AttemptClock interface {
	// MarkStarted records at unless a start is already recorded, and returns the stored start.
	MarkStarted(ctx context.Context, contestID, userID string, at, expiresAt time.Time) (time.Time, error)
	StartedAt(ctx context.Context, contestID, userID string) (time.Time, bool, error)
}

// ImageStore turns an uploaded image into a hosted URL.
type ImageStore interface {
	Save(ctx context.Context, folder string, src io.Reader, size int64) (string, error)
}

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// TokenIssuer signs bearer tokens for a principal.
type TokenIssuer interface {
	Issue(principal Principal) (string, error)
}
