package postgres

import (
	"time"

	"quizify-service/internal/domain"

	"github.com/uptrace/bun"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             string    `bun:"id,pk"`
	Name           string    `bun:"name,notnull"`
	Email          string    `bun:"email,notnull"`
	PasswordHash   string    `bun:"password_hash,notnull"`
	Role           string    `bun:"role,notnull"`
	College        string    `bun:"college,notnull"`
	Bio            string    `bun:"bio,notnull"`
	ProfilePicture string    `bun:"profile_picture,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func newUserRow(u domain.User) *userRow {
	return &userRow{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           u.Role.String(),
		College:        u.College,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

func (r userRow) toDomain() (domain.User, error) {
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Role:           role,
		College:        r.College,
		Bio:            r.Bio,
		ProfilePicture: r.ProfilePicture,
		CreatedAt:      r.CreatedAt,
	}, nil
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          string         `bun:"id,pk"`
	Title       string         `bun:"title,notnull"`
	Description string         `bun:"description,notnull"`
	Duration    int            `bun:"duration,notnull"`
	IsPublic    bool           `bun:"is_public,notnull"`
	CreatedBy   string         `bun:"created_by,notnull"`
	CreatedAt   time.Time      `bun:"created_at,notnull"`
	UpdatedAt   time.Time      `bun:"updated_at,notnull"`
	Questions   []*questionRow `bun:"rel:has-many,join:id=quiz_id"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID               string   `bun:"id,pk"`
	QuizID           string   `bun:"quiz_id,notnull"`
	Position         int      `bun:"position,notnull"`
	Text             string   `bun:"question_text,notnull"`
	Image            string   `bun:"question_image,notnull"`
	Options          []string `bun:"options,type:jsonb,notnull"`
	CorrectOption    int      `bun:"correct_option,notnull"`
	Explanation      string   `bun:"explanation,notnull"`
	ExplanationImage string   `bun:"explanation_image,notnull"`
}

func newQuizRow(q domain.Quiz) *quizRow {
	return &quizRow{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Duration:    q.Duration,
		IsPublic:    q.IsPublic,
		CreatedBy:   q.CreatedBy,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func newQuestionRows(quizID string, questions []domain.Question) []*questionRow {
	rows := make([]*questionRow, len(questions))
	for i, q := range questions {
		rows[i] = &questionRow{
			ID:               q.ID,
			QuizID:           quizID,
			Position:         i,
			Text:             q.Text,
			Image:            q.Image,
			Options:          q.Options,
			CorrectOption:    q.CorrectOption,
			Explanation:      q.Explanation,
			ExplanationImage: q.ExplanationImage,
		}
	}
	return rows
}

func (r quizRow) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Duration:    r.Duration,
		IsPublic:    r.IsPublic,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Questions:   make([]domain.Question, 0, len(r.Questions)),
	}
	for _, q := range r.Questions {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:               q.ID,
			QuizID:           q.QuizID,
			Position:         q.Position,
			Text:             q.Text,
			Image:            q.Image,
			Options:          q.Options,
			CorrectOption:    q.CorrectOption,
			Explanation:      q.Explanation,
			ExplanationImage: q.ExplanationImage,
		})
	}
	return quiz
}

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID             string              `bun:"id,pk"`
	UserID         string              `bun:"user_id,notnull"`
	QuizID         string              `bun:"quiz_id,notnull"`
	Answers        []domain.QuizAnswer `bun:"answers,type:jsonb,notnull"`
	TotalTimeTaken int                 `bun:"total_time_taken,notnull"`
	Score          int                 `bun:"score,notnull"`
	TotalQuestions int                 `bun:"total_questions,notnull"`
	Percentage     float64             `bun:"percentage,notnull"`
	SubmittedAt    time.Time           `bun:"submitted_at,notnull"`
}

func newResultRow(r domain.Result) *resultRow {
	return &resultRow{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		Answers:        nonNil(r.Answers),
		TotalTimeTaken: r.TotalTimeTaken,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Percentage:     r.Percentage,
		SubmittedAt:    r.SubmittedAt,
	}
}

func (r resultRow) toDomain() domain.Result {
	return domain.Result{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		Answers:        r.Answers,
		TotalTimeTaken: r.TotalTimeTaken,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Percentage:     r.Percentage,
		SubmittedAt:    r.SubmittedAt,
	}
}

type contestRow struct {
	bun.BaseModel `bun:"table:contests,alias:c"`

	ID              string                   `bun:"id,pk"`
	Title           string                   `bun:"title,notnull"`
	Description     string                   `bun:"description,notnull"`
	Questions       []domain.ContestQuestion `bun:"questions,type:jsonb,notnull"`
	CreatedBy       string                   `bun:"created_by,notnull"`
	StartTime       time.Time                `bun:"start_time,notnull"`
	EndTime         time.Time                `bun:"end_time,notnull"`
	Duration        int                      `bun:"duration,notnull"`
	MaxParticipants int                      `bun:"max_participants,notnull"`
	IsActive        bool                     `bun:"is_active,notnull"`
	Rules           string                   `bun:"rules,notnull"`
	CreatedAt       time.Time                `bun:"created_at,notnull"`
	UpdatedAt       time.Time                `bun:"updated_at,notnull"`
}

func newContestRow(c domain.Contest) *contestRow {
	return &contestRow{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Questions:       nonNil(c.Questions),
		CreatedBy:       c.CreatedBy,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		Duration:        c.Duration,
		MaxParticipants: c.MaxParticipants,
		IsActive:        c.IsActive,
		Rules:           c.Rules,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (r contestRow) toDomain() domain.Contest {
	return domain.Contest{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Questions:       r.Questions,
		CreatedBy:       r.CreatedBy,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Duration:        r.Duration,
		MaxParticipants: r.MaxParticipants,
		IsActive:        r.IsActive,
		Rules:           r.Rules,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type contestResultRow struct {
	bun.BaseModel `bun:"table:contest_results,alias:cr"`

	ID             string                 `bun:"id,pk"`
	UserID         string                 `bun:"user_id,notnull"`
	ContestID      string                 `bun:"contest_id,notnull"`
	Score          int                    `bun:"score,notnull"`
	TotalQuestions int                    `bun:"total_questions,notnull"`
	CorrectAnswers int                    `bun:"correct_answers,notnull"`
	Percentage     int                    `bun:"percentage,notnull"`
	TimeTaken      int                    `bun:"time_taken,notnull"`
	StartedAt      time.Time              `bun:"started_at,notnull"`
	SubmittedAt    time.Time              `bun:"submitted_at,notnull"`
	Answers        []domain.ContestAnswer `bun:"answers,type:jsonb,notnull"`
}

func newContestResultRow(r domain.ContestResult) *contestResultRow {
	return &contestResultRow{
		ID:             r.ID,
		UserID:         r.UserID,
		ContestID:      r.ContestID,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		Percentage:     r.Percentage,
		TimeTaken:      r.TimeTaken,
		StartedAt:      r.StartedAt,
		SubmittedAt:    r.SubmittedAt,
		Answers:        nonNil(r.Answers),
	}
}

func (r contestResultRow) toDomain() domain.ContestResult {
	return domain.ContestResult{
		ID:             r.ID,
		UserID:         r.UserID,
		ContestID:      r.ContestID,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		Percentage:     r.Percentage,
		TimeTaken:      r.TimeTaken,
		StartedAt:      r.StartedAt,
		SubmittedAt:    r.SubmittedAt,
		Answers:        r.Answers,
	}
}

// nonNil stores empty lists as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
