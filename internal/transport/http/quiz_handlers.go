package http

import (
	"net/http"

	"quizify-service/internal/app"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createQuiz(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req createQuizRequest
	if !h.bind(c, &req) {
		return
	}
	quiz, err := h.quizzes.CreateQuiz(c.Request.Context(), p, app.QuizInput{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		IsPublic:    req.IsPublic,
		Questions:   questionInputs(req.Questions),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Quiz created successfully", "quiz": quizJSON(quiz)})
}

func (h *Handler) myQuizzes(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	owned, err := h.quizzes.ListMyQuizzes(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	quizzes := make([]gin.H, len(owned))
	for i, o := range owned {
		quizzes[i] = ownedQuizJSON(o)
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

func (h *Handler) myQuiz(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	quiz, err := h.quizzes.GetMyQuiz(c.Request.Context(), p, c.Param("quizId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": quizJSON(quiz)})
}

func (h *Handler) updateQuiz(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req updateQuizRequest
	if !h.bind(c, &req) {
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(c.Request.Context(), p, c.Param("quizId"), app.QuizPatch{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		IsPublic:    req.IsPublic,
		Questions:   questionInputs(req.Questions),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quiz updated successfully", "quiz": quizJSON(quiz)})
}

func (h *Handler) deleteQuiz(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if err := h.quizzes.DeleteQuiz(c.Request.Context(), p, c.Param("quizId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted successfully"})
}

func (h *Handler) availableQuizzes(c *gin.Context) {
	listings, err := h.quizzes.ListAvailable(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	quizzes := make([]gin.H, len(listings))
	for i, l := range listings {
		quizzes[i] = quizListingJSON(l)
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

func (h *Handler) quizForAttempt(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	attempt, err := h.quizzes.GetForAttempt(c.Request.Context(), p, c.Param("quizId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": quizAttemptJSON(attempt)})
}

func (h *Handler) submitQuiz(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req submitQuizRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.quizzes.Submit(c.Request.Context(), p, c.Param("quizId"), req.answers(), req.TotalTimeTaken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":        "Quiz submitted successfully",
		"result":         resultJSON(result),
		"score":          result.Score,
		"totalQuestions": result.TotalQuestions,
		"percentage":     result.Percentage,
	})
}

func (h *Handler) quizResult(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	review, err := h.quizzes.ResultDetails(c.Request.Context(), p, c.Param("resultId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": resultReviewJSON(review)})
}

func (h *Handler) quizHistory(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	summaries, err := h.quizzes.History(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	results := make([]gin.H, len(summaries))
	for i, s := range summaries {
		results[i] = resultSummaryJSON(s)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) deleteQuizResult(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if err := h.quizzes.DeleteResult(c.Request.Context(), p, c.Param("resultId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Result deleted successfully"})
}
