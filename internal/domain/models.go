package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles. Every authorization check switches on it.
type Role int

const (
	RoleParticipant Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleParticipant:
		return "user"
	}
	return "unknown"
}

// ParseRole maps the wire name of a role back to the enum.
func ParseRole(raw string) (Role, error) {
	switch raw {
	case "admin":
		return RoleAdmin, nil
	case "user":
		return RoleParticipant, nil
	}
	return RoleParticipant, fmt.Errorf("unknown role %q", raw)
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is an account. Role is fixed at creation.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	College        string    `json:"college"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Question belongs to exactly one quiz.
type Question struct {
	ID               string   `json:"id"`
	QuizID           string   `json:"quizId"`
	Position         int      `json:"position"`
	Text             string   `json:"questionText"`
	Image            string   `json:"questionImage"`
	Options          []string `json:"options"`
	CorrectOption    int      `json:"correctOption"`
	Explanation      string   `json:"explanation"`
	ExplanationImage string   `json:"explanationImage"`
}

// Quiz is an admin-owned question set. Duration is in minutes.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"`
	IsPublic    bool       `json:"isPublic"`
	CreatedBy   string     `json:"createdBy"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Unattempted marks a quiz question the user skipped.
const Unattempted = -1

// QuizAnswer is one scored answer inside a quiz Result.
type QuizAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
	TimeSpent      int    `json:"timeSpent"`
}

// Result is one quiz attempt. Several may exist per (user, quiz).
type Result struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	QuizID         string       `json:"quizId"`
	Answers        []QuizAnswer `json:"answers"`
	TotalTimeTaken int          `json:"totalTimeTaken"`
	Score          int          `json:"score"`
	TotalQuestions int          `json:"totalQuestions"`
	Percentage     float64      `json:"percentage"`
	SubmittedAt    time.Time    `json:"submittedAt"`
}

// ContestQuestion is embedded in its contest and addressed by index.
type ContestQuestion struct {
	Text             string   `json:"questionText"`
	Image            string   `json:"questionImage"`
	Options          []string `json:"options"`
	CorrectOption    int      `json:"correctOption"`
	Explanation      string   `json:"explanation"`
	ExplanationImage string   `json:"explanationImage"`
}

// ContestStatus is derived from the clock, never stored.
type ContestStatus int

const (
	StatusUpcoming ContestStatus = iota
	StatusLive
	StatusEnded
)

func (s ContestStatus) String() string {
	switch s {
	case StatusUpcoming:
		return "upcoming"
	case StatusLive:
		return "live"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// Contest is a timed, admin-owned question set. Duration is the per-attempt cap in minutes;
// MaxParticipants of zero means unlimited.
type Contest struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Questions       []ContestQuestion `json:"questions"`
	CreatedBy       string            `json:"createdBy"`
	StartTime       time.Time         `json:"startTime"`
	EndTime         time.Time         `json:"endTime"`
	Duration        int               `json:"duration"`
	MaxParticipants int               `json:"maxParticipants"`
	IsActive        bool              `json:"isActive"`
	Rules           string            `json:"rules"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Status places now on the contest's timeline.
func (c Contest) Status(now time.Time) ContestStatus {
	switch {
	case now.Before(c.StartTime):
		return StatusUpcoming
	case now.After(c.EndTime):
		return StatusEnded
	default:
		return StatusLive
	}
}

// IsLive requires the contest to be active as well as inside its window.
func (c Contest) IsLive(now time.Time) bool {
	return c.IsActive && c.Status(now) == StatusLive
}

func (c Contest) HasEnded(now time.Time) bool {
	return c.Status(now) == StatusEnded
}

func (c Contest) IsUpcoming(now time.Time) bool {
	return c.Status(now) == StatusUpcoming
}

// ContestAnswer is the scored answer for one contest question. SelectedOption is nil when
// the participant gave no answer.
type ContestAnswer struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedOption *int `json:"selectedOption"`
	IsCorrect      bool `json:"isCorrect"`
	TimeSpent      int  `json:"timeSpent"`
}

// ContestResult is the single submission of one user for one contest. TimeTaken is in seconds.
type ContestResult struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	ContestID      string          `json:"contestId"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	CorrectAnswers int             `json:"correctAnswers"`
	Percentage     int             `json:"percentage"`
	TimeTaken      int             `json:"timeTaken"`
	StartedAt      time.Time       `json:"startedAt"`
	SubmittedAt    time.Time       `json:"submittedAt"`
	Answers        []ContestAnswer `json:"answers"`
}
