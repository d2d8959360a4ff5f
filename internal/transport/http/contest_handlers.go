package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createContest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req createContestRequest
	if !h.bind(c, &req) {
		return
	}
	contest, err := h.contests.CreateContest(c.Request.Context(), p, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Contest created successfully", "contest": contestJSON(contest, h.now())})
}

func (h *Handler) myContests(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	owned, err := h.contests.ListMyContests(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	now := h.now()
	contests := make([]gin.H, len(owned))
	for i, o := range owned {
		contests[i] = ownedContestJSON(o, now)
	}
	c.JSON(http.StatusOK, gin.H{"contests": contests})
}

func (h *Handler) myContest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	owned, err := h.contests.GetMyContest(c.Request.Context(), p, c.Param("contestId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contest": ownedContestJSON(owned, h.now())})
}

func (h *Handler) updateContest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req updateContestRequest
	if !h.bind(c, &req) {
		return
	}
	contest, err := h.contests.UpdateContest(c.Request.Context(), p, c.Param("contestId"), req.patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contest updated successfully", "contest": contestJSON(contest, h.now())})
}

func (h *Handler) deleteContest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if err := h.contests.DeleteContest(c.Request.Context(), p, c.Param("contestId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contest deleted successfully"})
}

func (h *Handler) adminLeaderboard(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	board, err := h.contests.AdminLeaderboard(c.Request.Context(), p, c.Param("contestId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, leaderboardJSON(board, true))
}

func (h *Handler) listContests(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	listings, err := h.contests.ListContests(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	contests := make([]gin.H, len(listings))
	for i, l := range listings {
		contests[i] = contestListingJSON(l)
	}
	c.JSON(http.StatusOK, gin.H{"contests": contests})
}

func (h *Handler) contestForAttempt(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	attempt, err := h.contests.GetContestForAttempt(c.Request.Context(), p, c.Param("contestId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contestAttemptJSON(attempt))
}

func (h *Handler) submitContest(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req submitContestRequest
	if !h.bind(c, &req) {
		return
	}
	summary, err := h.contests.SubmitContest(c.Request.Context(), p, c.Param("contestId"), req.submission())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contest submitted successfully", "result": submissionJSON(summary)})
}

func (h *Handler) contestLeaderboard(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	board, err := h.contests.Leaderboard(c.Request.Context(), p, c.Param("contestId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, leaderboardJSON(board, false))
}

func (h *Handler) contestHistory(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	entries, err := h.contests.History(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	history := make([]gin.H, len(entries))
	for i, e := range entries {
		history[i] = contestHistoryJSON(e)
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) contestResult(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	review, err := h.contests.ResultDetails(c.Request.Context(), p, c.Param("resultId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": contestReviewJSON(review)})
}
