package http

import (
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/domain"

	"github.com/gin-gonic/gin"
)

func userJSON(u domain.User) gin.H {
	return gin.H{
		"id":             u.ID,
		"name":           u.Name,
		"email":          u.Email,
		"role":           u.Role,
		"college":        u.College,
		"bio":            u.Bio,
		"profilePicture": u.ProfilePicture,
		"createdAt":      u.CreatedAt,
	}
}

func publicUserJSON(u domain.User) gin.H {
	return gin.H{"name": u.Name, "college": u.College, "profilePicture": u.ProfilePicture}
}

func questionJSON(q domain.Question) gin.H {
	return gin.H{
		"_id":              q.ID,
		"questionText":     q.Text,
		"questionImage":    q.Image,
		"options":          q.Options,
		"correctOption":    q.CorrectOption,
		"explanation":      q.Explanation,
		"explanationImage": q.ExplanationImage,
	}
}

// quizJSON is the owner's view and carries the answer key.
func quizJSON(q domain.Quiz) gin.H {
	questions := make([]gin.H, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = questionJSON(question)
	}
	return gin.H{
		"_id":         q.ID,
		"title":       q.Title,
		"description": q.Description,
		"duration":    q.Duration,
		"isPublic":    q.IsPublic,
		"createdBy":   q.CreatedBy,
		"questions":   questions,
		"createdAt":   q.CreatedAt,
		"updatedAt":   q.UpdatedAt,
	}
}

func ownedQuizJSON(o app.OwnedQuiz) gin.H {
	body := quizJSON(o.Quiz)
	body["attemptCount"] = o.AttemptCount
	body["questionCount"] = o.QuestionCount
	return body
}

func quizListingJSON(l app.QuizListing) gin.H {
	return gin.H{
		"_id":           l.Quiz.ID,
		"title":         l.Quiz.Title,
		"description":   l.Quiz.Description,
		"duration":      l.Quiz.Duration,
		"isPublic":      l.Quiz.IsPublic,
		"createdBy":     gin.H{"_id": l.Quiz.CreatedBy, "name": l.CreatorName},
		"questionCount": l.QuestionCount,
		"createdAt":     l.Quiz.CreatedAt,
	}
}

func quizAttemptJSON(a app.QuizAttempt) gin.H {
	questions := make([]gin.H, len(a.Questions))
	for i, q := range a.Questions {
		questions[i] = gin.H{
			"_id":           q.ID,
			"index":         q.Index,
			"questionText":  q.Text,
			"questionImage": q.Image,
			"options":       q.Options,
		}
	}
	return gin.H{
		"_id":         a.Quiz.ID,
		"title":       a.Quiz.Title,
		"description": a.Quiz.Description,
		"duration":    a.Quiz.Duration,
		"createdBy":   gin.H{"_id": a.Quiz.CreatedBy, "name": a.CreatorName},
		"questions":   questions,
	}
}

func resultJSON(r domain.Result) gin.H {
	return gin.H{
		"_id":            r.ID,
		"userId":         r.UserID,
		"quizId":         r.QuizID,
		"answers":        r.Answers,
		"score":          r.Score,
		"totalQuestions": r.TotalQuestions,
		"percentage":     r.Percentage,
		"totalTimeTaken": r.TotalTimeTaken,
		"submittedAt":    r.SubmittedAt,
	}
}

func resultSummaryJSON(s app.ResultSummary) gin.H {
	body := resultJSON(s.Result)
	body["quizId"] = gin.H{"_id": s.Result.QuizID, "title": s.QuizTitle, "description": s.QuizDescription}
	return body
}

func resultReviewJSON(r app.ResultReview) gin.H {
	answers := make([]gin.H, len(r.Answers))
	for i, a := range r.Answers {
		answers[i] = gin.H{
			"questionText":     a.QuestionText,
			"questionImage":    a.QuestionImage,
			"options":          a.Options,
			"selectedOption":   a.SelectedOption,
			"correctOption":    a.CorrectOption,
			"isCorrect":        a.IsCorrect,
			"explanation":      a.Explanation,
			"explanationImage": a.ExplanationImage,
			"timeSpent":        a.TimeSpent,
		}
	}
	body := resultSummaryJSON(app.ResultSummary{Result: r.Result, QuizTitle: r.QuizTitle, QuizDescription: r.QuizDescription})
	body["detailedAnswers"] = answers
	body["avgTimePerQuestion"] = r.AvgTimePerQuestion
	return body
}

func contestQuestionJSON(q domain.ContestQuestion) gin.H {
	return gin.H{
		"questionText":     q.Text,
		"questionImage":    q.Image,
		"options":          q.Options,
		"correctOption":    q.CorrectOption,
		"explanation":      q.Explanation,
		"explanationImage": q.ExplanationImage,
	}
}

// contestJSON is the owner's view and carries the answer key.
func contestJSON(c domain.Contest, now time.Time) gin.H {
	questions := make([]gin.H, len(c.Questions))
	for i, q := range c.Questions {
		questions[i] = contestQuestionJSON(q)
	}
	status := c.Status(now)
	return gin.H{
		"_id":             c.ID,
		"title":           c.Title,
		"description":     c.Description,
		"rules":           c.Rules,
		"questions":       questions,
		"createdBy":       c.CreatedBy,
		"startTime":       c.StartTime,
		"endTime":         c.EndTime,
		"duration":        c.Duration,
		"maxParticipants": c.MaxParticipants,
		"isActive":        c.IsActive,
		"status":          status.String(),
		"isLive":          c.IsActive && status == domain.StatusLive,
		"hasEnded":        status == domain.StatusEnded,
		"isUpcoming":      status == domain.StatusUpcoming,
		"createdAt":       c.CreatedAt,
		"updatedAt":       c.UpdatedAt,
	}
}

func ownedContestJSON(o app.OwnedContest, now time.Time) gin.H {
	body := contestJSON(o.Contest, now)
	body["participantCount"] = o.ParticipantCount
	body["questionCount"] = o.QuestionCount
	return body
}

func contestListingJSON(l app.ContestListing) gin.H {
	return gin.H{
		"_id":             l.Contest.ID,
		"title":           l.Contest.Title,
		"description":     l.Contest.Description,
		"rules":           l.Contest.Rules,
		"createdBy":       gin.H{"_id": l.Contest.CreatedBy, "name": l.CreatorName},
		"startTime":       l.Contest.StartTime,
		"endTime":         l.Contest.EndTime,
		"duration":        l.Contest.Duration,
		"maxParticipants": l.Contest.MaxParticipants,
		"questionCount":   l.QuestionCount,
		"hasAttempted":    l.HasAttempted,
		"status":          l.Status.String(),
		"isLive":          l.Contest.IsActive && l.Status == domain.StatusLive,
		"hasEnded":        l.Status == domain.StatusEnded,
		"isUpcoming":      l.Status == domain.StatusUpcoming,
	}
}

func contestAttemptJSON(a app.ContestAttempt) gin.H {
	questions := make([]gin.H, len(a.Questions))
	for i, q := range a.Questions {
		questions[i] = gin.H{
			"index":         q.Index,
			"questionText":  q.Text,
			"questionImage": q.Image,
			"options":       q.Options,
		}
	}
	return gin.H{
		"contest": gin.H{
			"_id":         a.Contest.ID,
			"title":       a.Contest.Title,
			"description": a.Contest.Description,
			"duration":    a.EffectiveDuration,
			"endTime":     a.Contest.EndTime,
			"rules":       a.Contest.Rules,
			"startedAt":   a.StartedAt,
		},
		"questions": questions,
	}
}

func submissionJSON(s app.SubmissionSummary) gin.H {
	return gin.H{
		"_id":            s.ResultID,
		"score":          s.Score,
		"totalQuestions": s.TotalQuestions,
		"percentage":     s.Percentage,
		"timeTaken":      s.TimeTaken,
	}
}

// leaderboardJSON renders standings. The admin view adds contact details and submission times.
func leaderboardJSON(b app.Leaderboard, admin bool) gin.H {
	entries := make([]gin.H, len(b.Entries))
	for i, e := range b.Entries {
		user := publicUserJSON(e.User)
		entry := gin.H{
			"rank":           e.Rank,
			"user":           user,
			"score":          e.Score,
			"totalQuestions": e.TotalQuestions,
			"percentage":     e.Percentage,
			"timeTaken":      e.TimeTaken,
		}
		if admin {
			user["_id"] = e.User.ID
			user["email"] = e.User.Email
			entry["submittedAt"] = e.SubmittedAt
		}
		entries[i] = entry
	}
	return gin.H{
		"contest": gin.H{
			"_id":       b.Contest.ID,
			"title":     b.Contest.Title,
			"startTime": b.Contest.StartTime,
			"endTime":   b.Contest.EndTime,
			"hasEnded":  b.HasEnded,
			"isLive":    b.IsLive,
		},
		"leaderboard":       entries,
		"userRank":          b.UserRank,
		"totalParticipants": b.TotalParticipants,
	}
}

func contestHistoryJSON(e app.ContestHistoryEntry) gin.H {
	return gin.H{
		"_id":               e.Result.ID,
		"contest":           gin.H{"_id": e.Result.ContestID, "title": e.ContestTitle, "startTime": e.StartTime, "endTime": e.EndTime},
		"score":             e.Result.Score,
		"totalQuestions":    e.Result.TotalQuestions,
		"percentage":        e.Result.Percentage,
		"timeTaken":         e.Result.TimeTaken,
		"submittedAt":       e.Result.SubmittedAt,
		"rank":              e.Rank,
		"totalParticipants": e.TotalParticipants,
		"percentile":        e.Percentile,
		"hasEnded":          e.HasEnded,
	}
}

func contestReviewJSON(r app.ContestResultReview) gin.H {
	answers := make([]gin.H, len(r.Answers))
	for i, a := range r.Answers {
		answers[i] = gin.H{
			"questionIndex":    a.QuestionIndex,
			"questionText":     a.QuestionText,
			"questionImage":    a.QuestionImage,
			"options":          a.Options,
			"correctOption":    a.CorrectOption,
			"selectedOption":   a.SelectedOption,
			"isCorrect":        a.IsCorrect,
			"timeSpent":        a.TimeSpent,
			"explanation":      a.Explanation,
			"explanationImage": a.ExplanationImage,
		}
	}
	return gin.H{
		"_id":                r.Result.ID,
		"contestId":          r.Contest.ID,
		"contestTitle":       r.Contest.Title,
		"score":              r.Result.Score,
		"totalQuestions":     r.Result.TotalQuestions,
		"percentage":         r.Result.Percentage,
		"timeTaken":          r.Result.TimeTaken,
		"rank":               r.Rank,
		"totalParticipants":  r.TotalParticipants,
		"submittedAt":        r.Result.SubmittedAt,
		"detailedAnswers":    answers,
		"avgTimePerQuestion": r.AvgTimePerQuestion,
	}
}
