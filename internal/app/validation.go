package app

import (
	"fmt"
	"strings"

	"quizify-service/internal/domain"
)

const (
	minOptions      = 2
	maxOptions      = 4
	defaultDuration = 30
)

// QuestionInput is an authored question before it is attached to a quiz or contest.
type QuestionInput struct {
	Text             string
	Image            string
	Options          []string
	CorrectOption    int
	Explanation      string
	ExplanationImage string
}

func validateQuestions(questions []QuestionInput) error {
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return domain.Validation(fmt.Sprintf("Question %d: question text is required", i+1))
		}
		if len(q.Options) < minOptions || len(q.Options) > maxOptions {
			return domain.Validation(fmt.Sprintf("Question %d: between %d and %d options are required", i+1, minOptions, maxOptions))
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return domain.Validation(fmt.Sprintf("Question %d: options cannot be empty", i+1))
			}
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return domain.Validation(fmt.Sprintf("Question %d: correct option index is out of range", i+1))
		}
	}
	return nil
}

func validateDuration(minutes int) error {
	if minutes > domain.MaxDuration {
		return domain.ErrDurationTooLong
	}
	return nil
}

// requireAdmin is the use-case level counterpart of the route role gate.
func requireAdmin(p Principal) error {
	switch p.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleParticipant:
		return domain.ErrRoleRequired
	}
	return domain.ErrRoleRequired
}
