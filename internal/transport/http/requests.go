package http

import (
	"encoding/json"
	"fmt"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/domain"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileRequest struct {
	Name           *string `json:"name"`
	College        *string `json:"college"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profilePicture"`
}

type questionRequest struct {
	QuestionText     string   `json:"questionText"`
	QuestionImage    string   `json:"questionImage"`
	Options          []string `json:"options"`
	CorrectOption    int      `json:"correctOption"`
	Explanation      string   `json:"explanation"`
	ExplanationImage string   `json:"explanationImage"`
}

// questionInputs keeps a nil slice nil so patches can tell "absent" from "empty".
func questionInputs(reqs []questionRequest) []app.QuestionInput {
	if reqs == nil {
		return nil
	}
	out := make([]app.QuestionInput, len(reqs))
	for i, q := range reqs {
		out[i] = app.QuestionInput{
			Text:             q.QuestionText,
			Image:            q.QuestionImage,
			Options:          q.Options,
			CorrectOption:    q.CorrectOption,
			Explanation:      q.Explanation,
			ExplanationImage: q.ExplanationImage,
		}
	}
	return out
}

type createQuizRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Duration    int               `json:"duration" binding:"gte=0,lte=1440"`
	IsPublic    *bool             `json:"isPublic"`
	Questions   []questionRequest `json:"questions"`
}

type updateQuizRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Duration    *int              `json:"duration" binding:"omitempty,gte=0,lte=1440"`
	IsPublic    *bool             `json:"isPublic"`
	Questions   []questionRequest `json:"questions"`
}

type quizAnswerRequest struct {
	QuestionID     string `json:"questionId"`
	SelectedOption *int   `json:"selectedOption"`
	TimeSpent      int    `json:"timeSpent"`
}

type submitQuizRequest struct {
	Answers        []quizAnswerRequest `json:"answers" binding:"required"`
	TotalTimeTaken int                 `json:"totalTimeTaken"`
}

func (r submitQuizRequest) answers() []app.QuizAnswerInput {
	out := make([]app.QuizAnswerInput, len(r.Answers))
	for i, a := range r.Answers {
		selected := domain.Unattempted
		if a.SelectedOption != nil {
			selected = *a.SelectedOption
		}
		out[i] = app.QuizAnswerInput{QuestionID: a.QuestionID, SelectedOption: selected, TimeSpent: a.TimeSpent}
	}
	return out
}

// clientTime accepts RFC 3339 timestamps as well as the zone-less form produced by
// datetime-local inputs, which is read as UTC.
type clientTime struct {
	time.Time
}

var clientTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func (t *clientTime) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	for _, layout := range clientTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid time %q", s)
}

func (t *clientTime) value() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func (t *clientTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

type createContestRequest struct {
	Title           string            `json:"title" binding:"required"`
	Description     string            `json:"description"`
	Rules           string            `json:"rules"`
	StartTime       *clientTime       `json:"startTime" binding:"required"`
	EndTime         *clientTime       `json:"endTime" binding:"required"`
	Duration        int               `json:"duration" binding:"gte=0,lte=1440"`
	MaxParticipants int               `json:"maxParticipants"`
	IsActive        *bool             `json:"isActive"`
	Questions       []questionRequest `json:"questions"`
}

func (r createContestRequest) input() app.ContestInput {
	return app.ContestInput{
		Title:           r.Title,
		Description:     r.Description,
		Rules:           r.Rules,
		StartTime:       r.StartTime.value(),
		EndTime:         r.EndTime.value(),
		Duration:        r.Duration,
		MaxParticipants: r.MaxParticipants,
		IsActive:        r.IsActive,
		Questions:       questionInputs(r.Questions),
	}
}

type updateContestRequest struct {
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	Rules           *string           `json:"rules"`
	StartTime       *clientTime       `json:"startTime"`
	EndTime         *clientTime       `json:"endTime"`
	Duration        *int              `json:"duration" binding:"omitempty,gte=0,lte=1440"`
	MaxParticipants *int              `json:"maxParticipants"`
	IsActive        *bool             `json:"isActive"`
	Questions       []questionRequest `json:"questions"`
}

func (r updateContestRequest) patch() app.ContestPatch {
	return app.ContestPatch{
		Title:           r.Title,
		Description:     r.Description,
		Rules:           r.Rules,
		StartTime:       r.StartTime.ptr(),
		EndTime:         r.EndTime.ptr(),
		Duration:        r.Duration,
		MaxParticipants: r.MaxParticipants,
		IsActive:        r.IsActive,
		Questions:       questionInputs(r.Questions),
	}
}

type contestAnswerRequest struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedOption *int `json:"selectedOption"`
	TimeSpent      int  `json:"timeSpent"`
}

type submitContestRequest struct {
	Answers   []contestAnswerRequest `json:"answers"`
	StartedAt *clientTime            `json:"startedAt"`
}

func (r submitContestRequest) submission() app.ContestSubmission {
	answers := make([]domain.SubmittedAnswer, len(r.Answers))
	for i, a := range r.Answers {
		answers[i] = domain.SubmittedAnswer{QuestionIndex: a.QuestionIndex, SelectedOption: a.SelectedOption, TimeSpent: a.TimeSpent}
	}
	return app.ContestSubmission{Answers: answers, StartedAt: r.StartedAt.value()}
}
