package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"quizify-service/internal/domain"
	"quizify-service/internal/metrics"

	"github.com/google/uuid"
)

// attemptClockGrace keeps a recorded attempt start around for a while after the contest closes.
const attemptClockGrace = time.Hour

// ContestService owns the contest catalog, the entry gate, submission and ranking.
type ContestService struct {
	contests ContestRepository
	results  ContestResultRepository
	users    UserRepository
	attempts AttemptClock
	hub      *LeaderboardHub
	now      func() time.Time
}

func NewContestService(contests ContestRepository, results ContestResultRepository, users UserRepository,
	attempts AttemptClock, hub *LeaderboardHub) *ContestService {
	return NewContestServiceWithClock(contests, results, users, attempts, hub, time.Now)
}

// NewContestServiceWithClock allows deterministic timelines in tests.
func NewContestServiceWithClock(contests ContestRepository, results ContestResultRepository, users UserRepository,
	attempts AttemptClock, hub *LeaderboardHub, now func() time.Time) *ContestService {
	if hub == nil {
		hub = NewLeaderboardHub()
	}
	return &ContestService{
		contests: contests,
		results:  results,
		users:    users,
		attempts: attempts,
		hub:      hub,
		now:      now,
	}
}

// Hub exposes the change feed used by live leaderboard subscribers.
func (s *ContestService) Hub() *LeaderboardHub {
	return s.hub
}

// ContestInput is the payload for creating a contest. A nil IsActive means active.
type ContestInput struct {
	Title           string
	Description     string
	Rules           string
	StartTime       time.Time
	EndTime         time.Time
	Duration        int
	MaxParticipants int
	IsActive        *bool
	Questions       []QuestionInput
}

// ContestPatch edits an upcoming contest; nil fields are left alone.
type ContestPatch struct {
	Title           *string
	Description     *string
	Rules           *string
	StartTime       *time.Time
	EndTime         *time.Time
	Duration        *int
	MaxParticipants *int
	IsActive        *bool
	Questions       []QuestionInput
}

// OwnedContest is an admin's contest with its participation figures.
type OwnedContest struct {
	Contest          domain.Contest
	ParticipantCount int
	QuestionCount    int
}

// ContestListing is an active contest as shown to participants, answer key removed.
type ContestListing struct {
	Contest       domain.Contest
	CreatorName   string
	QuestionCount int
	HasAttempted  bool
	Status        domain.ContestStatus
}

// ContestQuestionView is a contest question without its answer or explanation.
type ContestQuestionView struct {
	Index   int
	Text    string
	Image   string
	Options []string
}

// ContestAttempt is what a participant receives when entering a live contest.
type ContestAttempt struct {
	Contest           domain.Contest
	Questions         []ContestQuestionView
	EffectiveDuration int
	StartedAt         time.Time
}

// ContestSubmission is one participant's answer sheet. StartedAt is the client's own start
// time and is only used when the server never saw the attempt begin.
type ContestSubmission struct {
	Answers   []domain.SubmittedAnswer
	StartedAt time.Time
}

// SubmissionSummary is the slim outcome of a submission; rank is computed on read.
type SubmissionSummary struct {
	ResultID       string
	Score          int
	TotalQuestions int
	Percentage     int
	TimeTaken      int
}

// LeaderboardEntry is one ranked row. User carries the participant's profile.
type LeaderboardEntry struct {
	Rank           int
	User           domain.User
	Score          int
	TotalQuestions int
	Percentage     int
	TimeTaken      int
	SubmittedAt    time.Time
}

// Leaderboard is a ranked snapshot of one contest.
type Leaderboard struct {
	Contest           domain.Contest
	HasEnded          bool
	IsLive            bool
	Entries           []LeaderboardEntry
	UserRank          *int
	TotalParticipants int
}

// ContestHistoryEntry is one of the caller's submissions placed in its contest.
type ContestHistoryEntry struct {
	Placement
	ContestTitle string
	StartTime    time.Time
	EndTime      time.Time
	HasEnded     bool
}

// ContestAnswerReview is a graded contest answer joined with its question.
type ContestAnswerReview struct {
	QuestionIndex    int
	QuestionText     string
	QuestionImage    string
	Options          []string
	CorrectOption    int
	SelectedOption   *int
	IsCorrect        bool
	TimeSpent        int
	Explanation      string
	ExplanationImage string
}

// ContestResultReview reveals the answer key for a finished contest submission.
type ContestResultReview struct {
	Result             domain.ContestResult
	Contest            domain.Contest
	Answers            []ContestAnswerReview
	Rank               int
	TotalParticipants  int
	AvgTimePerQuestion int
}

// CreateContest stores a new contest owned by the caller.
func (s *ContestService) CreateContest(ctx context.Context, p Principal, in ContestInput) (domain.Contest, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Contest{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Contest{}, domain.Validation("Contest title is required")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return domain.Contest{}, domain.Validation("Start time and end time are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return domain.Contest{}, domain.ErrInvalidTimeWindow
	}
	if err := validateQuestions(in.Questions); err != nil {
		return domain.Contest{}, err
	}
	if err := validateDuration(in.Duration); err != nil {
		return domain.Contest{}, err
	}

	now := s.now()
	contest := domain.Contest{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Questions:       buildContestQuestions(in.Questions),
		CreatedBy:       p.UserID,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Duration:        in.Duration,
		MaxParticipants: max(in.MaxParticipants, 0),
		IsActive:        true,
		Rules:           in.Rules,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if contest.Duration <= 0 {
		contest.Duration = defaultDuration
	}
	if in.IsActive != nil {
		contest.IsActive = *in.IsActive
	}

	if err := s.contests.CreateContest(ctx, &contest); err != nil {
		return domain.Contest{}, fmt.Errorf("create contest: %w", err)
	}
	return contest, nil
}

// ListMyContests returns the caller's contests, newest first.
func (s *ContestService) ListMyContests(ctx context.Context, p Principal) ([]OwnedContest, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	contests, err := s.contests.ListContestsByOwner(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	sort.SliceStable(contests, func(i, j int) bool {
		return contests[i].CreatedAt.After(contests[j].CreatedAt)
	})

	owned := make([]OwnedContest, 0, len(contests))
	for _, c := range contests {
		count, err := s.results.CountContestResults(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("count participants: %w", err)
		}
		owned = append(owned, OwnedContest{Contest: c, ParticipantCount: count, QuestionCount: len(c.Questions)})
	}
	return owned, nil
}

// GetMyContest returns one of the caller's contests with its answer key.
func (s *ContestService) GetMyContest(ctx context.Context, p Principal, contestID string) (OwnedContest, error) {
	if err := requireAdmin(p); err != nil {
		return OwnedContest{}, err
	}
	contest, err := s.ownedContest(ctx, p, contestID)
	if err != nil {
		return OwnedContest{}, err
	}
	count, err := s.results.CountContestResults(ctx, contest.ID)
	if err != nil {
		return OwnedContest{}, fmt.Errorf("count participants: %w", err)
	}
	return OwnedContest{Contest: contest, ParticipantCount: count, QuestionCount: len(contest.Questions)}, nil
}

// UpdateContest edits one of the caller's contests while it is still upcoming.
func (s *ContestService) UpdateContest(ctx context.Context, p Principal, contestID string, patch ContestPatch) (domain.Contest, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Contest{}, err
	}
	contest, err := s.ownedContest(ctx, p, contestID)
	if err != nil {
		return domain.Contest{}, err
	}
	now := s.now()
	if !now.Before(contest.StartTime) {
		return domain.Contest{}, domain.ErrContestLocked
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		contest.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		contest.Description = *patch.Description
	}
	if patch.Rules != nil {
		contest.Rules = *patch.Rules
	}
	if patch.StartTime != nil && !patch.StartTime.IsZero() {
		contest.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil && !patch.EndTime.IsZero() {
		contest.EndTime = *patch.EndTime
	}
	if patch.Duration != nil && *patch.Duration > 0 {
		if err := validateDuration(*patch.Duration); err != nil {
			return domain.Contest{}, err
		}
		contest.Duration = *patch.Duration
	}
	if patch.MaxParticipants != nil {
		contest.MaxParticipants = max(*patch.MaxParticipants, 0)
	}
	if patch.IsActive != nil {
		contest.IsActive = *patch.IsActive
	}
	if patch.Questions != nil {
		if err := validateQuestions(patch.Questions); err != nil {
			return domain.Contest{}, err
		}
		contest.Questions = buildContestQuestions(patch.Questions)
	}
	if !contest.EndTime.After(contest.StartTime) {
		return domain.Contest{}, domain.ErrInvalidTimeWindow
	}
	contest.UpdatedAt = now

	if err := s.contests.UpdateContest(ctx, contest); err != nil {
		return domain.Contest{}, fmt.Errorf("update contest: %w", err)
	}
	return contest, nil
}

// DeleteContest removes one of the caller's contests and every result submitted for it.
func (s *ContestService) DeleteContest(ctx context.Context, p Principal, contestID string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if _, err := s.ownedContest(ctx, p, contestID); err != nil {
		return err
	}
	if err := s.contests.DeleteContest(ctx, contestID); err != nil {
		return fmt.Errorf("delete contest: %w", err)
	}
	s.hub.Notify(contestID)
	return nil
}

// ListContests returns active contests, latest start first, without answer keys.
func (s *ContestService) ListContests(ctx context.Context, p Principal) ([]ContestListing, error) {
	contests, err := s.contests.ListActiveContests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	sort.SliceStable(contests, func(i, j int) bool {
		return contests[i].StartTime.After(contests[j].StartTime)
	})

	mine, err := s.results.ListContestResultsByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	attempted := make(map[string]bool, len(mine))
	for _, r := range mine {
		attempted[r.ContestID] = true
	}

	creators := make([]string, 0, len(contests))
	for _, c := range contests {
		creators = append(creators, c.CreatedBy)
	}
	users, err := s.users.GetUsers(ctx, creators)
	if err != nil {
		return nil, fmt.Errorf("load creators: %w", err)
	}

	now := s.now()
	listings := make([]ContestListing, 0, len(contests))
	for _, c := range contests {
		listings = append(listings, ContestListing{
			Contest:       withoutAnswerKey(c),
			CreatorName:   users[c.CreatedBy].Name,
			QuestionCount: len(c.Questions),
			HasAttempted:  attempted[c.ID],
			Status:        c.Status(now),
		})
	}
	return listings, nil
}

// GetContestForAttempt runs the entry gate and, when it passes, records the attempt start.
func (s *ContestService) GetContestForAttempt(ctx context.Context, p Principal, contestID string) (ContestAttempt, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return ContestAttempt{}, err
	}
	if !contest.IsActive {
		return ContestAttempt{}, domain.ErrContestInactive
	}
	now := s.now()
	switch contest.Status(now) {
	case domain.StatusUpcoming:
		return ContestAttempt{}, domain.ErrContestNotStarted
	case domain.StatusEnded:
		return ContestAttempt{}, domain.ErrContestEnded
	case domain.StatusLive:
	}

	if _, found, err := s.results.FindContestResult(ctx, contest.ID, p.UserID); err != nil {
		return ContestAttempt{}, fmt.Errorf("check attempt: %w", err)
	} else if found {
		return ContestAttempt{}, domain.ErrAlreadyAttempted
	}
	if contest.MaxParticipants > 0 {
		count, err := s.results.CountContestResults(ctx, contest.ID)
		if err != nil {
			return ContestAttempt{}, fmt.Errorf("count participants: %w", err)
		}
		if count >= contest.MaxParticipants {
			return ContestAttempt{}, domain.ErrContestFull
		}
	}

	startedAt, err := s.attempts.MarkStarted(ctx, contest.ID, p.UserID, now, contest.EndTime.Add(attemptClockGrace))
	if err != nil {
		return ContestAttempt{}, fmt.Errorf("record attempt start: %w", err)
	}

	questions := make([]ContestQuestionView, len(contest.Questions))
	for i, q := range contest.Questions {
		questions[i] = ContestQuestionView{Index: i, Text: q.Text, Image: q.Image, Options: q.Options}
	}
	return ContestAttempt{
		Contest:           withoutAnswerKey(contest),
		Questions:         questions,
		EffectiveDuration: domain.EffectiveDuration(contest, now),
		StartedAt:         startedAt,
	}, nil
}

// SubmitContest grades and stores the caller's only submission for a contest.
func (s *ContestService) SubmitContest(ctx context.Context, p Principal, contestID string, sub ContestSubmission) (SubmissionSummary, error) {
	summary, err := s.submit(ctx, p, contestID, sub)
	metrics.RecordSubmission(submissionOutcome(err))
	return summary, err
}

func (s *ContestService) submit(ctx context.Context, p Principal, contestID string, sub ContestSubmission) (SubmissionSummary, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return SubmissionSummary{}, err
	}
	now := s.now()
	if contest.IsUpcoming(now) {
		return SubmissionSummary{}, domain.ErrContestNotStarted
	}
	if _, found, err := s.results.FindContestResult(ctx, contest.ID, p.UserID); err != nil {
		return SubmissionSummary{}, fmt.Errorf("check submission: %w", err)
	} else if found {
		return SubmissionSummary{}, domain.ErrAlreadySubmitted
	}

	answers, correct := domain.ScoreContest(contest.Questions, sub.Answers)
	startedAt := s.attemptStart(ctx, contest, p.UserID, sub.StartedAt, now)
	total := len(contest.Questions)
	result := domain.ContestResult{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		ContestID:      contest.ID,
		Score:          correct,
		TotalQuestions: total,
		CorrectAnswers: correct,
		Percentage:     domain.ContestPercentage(correct, total),
		TimeTaken:      domain.ElapsedSeconds(startedAt, now),
		StartedAt:      startedAt,
		SubmittedAt:    now,
		Answers:        answers,
	}
	if err := s.results.CreateContestResult(ctx, &result); err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			return SubmissionSummary{}, err
		}
		return SubmissionSummary{}, fmt.Errorf("save contest result: %w", err)
	}
	s.hub.Notify(contest.ID)

	return SubmissionSummary{
		ResultID:       result.ID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Percentage:     result.Percentage,
		TimeTaken:      result.TimeTaken,
	}, nil
}

// attemptStart prefers the start recorded by the entry gate over the client's claim, and keeps
// whichever it uses inside [contest start, now].
func (s *ContestService) attemptStart(ctx context.Context, contest domain.Contest, userID string, claimed, now time.Time) time.Time {
	start := claimed
	recorded, ok, err := s.attempts.StartedAt(ctx, contest.ID, userID)
	if err != nil {
		log.Printf("attempt clock lookup failed contest=%s user=%s: %v", contest.ID, userID, err)
	} else if ok {
		start = recorded
	}
	if start.IsZero() || start.Before(contest.StartTime) {
		start = contest.StartTime
	}
	if start.After(now) {
		start = now
	}
	return start
}

// Leaderboard is the participant view of a contest's standings. It opens once the contest has
// ended, and earlier to the owning admin or to anyone who has already submitted.
func (s *ContestService) Leaderboard(ctx context.Context, p Principal, contestID string) (Leaderboard, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return Leaderboard{}, err
	}
	standings, err := standingsFor(ctx, s.results, contest.ID)
	if err != nil {
		return Leaderboard{}, err
	}

	now := s.now()
	userRank, submitted := domain.RankOfUser(standings, p.UserID)
	owner := p.IsAdmin() && contest.CreatedBy == p.UserID
	if !contest.HasEnded(now) && !owner && !submitted {
		return Leaderboard{}, domain.ErrLeaderboardHidden
	}

	board, err := s.buildLeaderboard(ctx, contest, standings, now)
	if err != nil {
		return Leaderboard{}, err
	}
	if submitted {
		board.UserRank = &userRank
	}
	return board, nil
}

// AdminLeaderboard is the unrestricted standings view for administrators.
func (s *ContestService) AdminLeaderboard(ctx context.Context, p Principal, contestID string) (Leaderboard, error) {
	if err := requireAdmin(p); err != nil {
		return Leaderboard{}, err
	}
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return Leaderboard{}, err
	}
	standings, err := standingsFor(ctx, s.results, contest.ID)
	if err != nil {
		return Leaderboard{}, err
	}
	return s.buildLeaderboard(ctx, contest, standings, s.now())
}

// OwnedLeaderboard is AdminLeaderboard restricted to the contest's owner. The live feed uses it.
func (s *ContestService) OwnedLeaderboard(ctx context.Context, p Principal, contestID string) (Leaderboard, error) {
	if err := requireAdmin(p); err != nil {
		return Leaderboard{}, err
	}
	if _, err := s.ownedContest(ctx, p, contestID); err != nil {
		return Leaderboard{}, err
	}
	return s.AdminLeaderboard(ctx, p, contestID)
}

func (s *ContestService) buildLeaderboard(ctx context.Context, contest domain.Contest, standings []domain.Standing, now time.Time) (Leaderboard, error) {
	ids := make([]string, 0, len(standings))
	for _, st := range standings {
		ids = append(ids, st.Result.UserID)
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("load participants: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(standings))
	for _, st := range standings {
		entries = append(entries, LeaderboardEntry{
			Rank:           st.Rank,
			User:           users[st.Result.UserID],
			Score:          st.Result.Score,
			TotalQuestions: st.Result.TotalQuestions,
			Percentage:     st.Result.Percentage,
			TimeTaken:      st.Result.TimeTaken,
			SubmittedAt:    st.Result.SubmittedAt,
		})
	}
	return Leaderboard{
		Contest:           withoutAnswerKey(contest),
		HasEnded:          contest.HasEnded(now),
		IsLive:            contest.IsLive(now),
		Entries:           entries,
		TotalParticipants: len(entries),
	}, nil
}

// History lists the caller's contest submissions, newest first, each placed in its contest.
func (s *ContestService) History(ctx context.Context, p Principal) ([]ContestHistoryEntry, error) {
	results, err := s.results.ListContestResultsByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list contest results: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SubmittedAt.After(results[j].SubmittedAt)
	})
	placements, err := placeResults(ctx, s.results, results)
	if err != nil {
		return nil, err
	}

	now := s.now()
	history := make([]ContestHistoryEntry, 0, len(placements))
	for _, pl := range placements {
		contest, err := s.contests.GetContest(ctx, pl.Result.ContestID)
		if errors.Is(err, domain.ErrContestNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pl.Result.Answers = nil
		history = append(history, ContestHistoryEntry{
			Placement:    pl,
			ContestTitle: contest.Title,
			StartTime:    contest.StartTime,
			EndTime:      contest.EndTime,
			HasEnded:     contest.HasEnded(now),
		})
	}
	return history, nil
}

// ResultDetails reveals the answer key for the caller's own submission once the contest is over.
func (s *ContestService) ResultDetails(ctx context.Context, p Principal, resultID string) (ContestResultReview, error) {
	result, err := s.results.GetContestResult(ctx, resultID)
	if err != nil {
		return ContestResultReview{}, err
	}
	if result.UserID != p.UserID {
		return ContestResultReview{}, domain.ErrResultForbidden
	}
	contest, err := s.contests.GetContest(ctx, result.ContestID)
	if err != nil {
		return ContestResultReview{}, err
	}
	if !contest.HasEnded(s.now()) {
		return ContestResultReview{}, domain.ErrContestNotEnded
	}

	standings, err := standingsFor(ctx, s.results, contest.ID)
	if err != nil {
		return ContestResultReview{}, err
	}
	rank, _ := domain.RankOfResult(standings, result.ID)

	reviews := make([]ContestAnswerReview, 0, len(result.Answers))
	spent := 0
	for _, a := range result.Answers {
		spent += a.TimeSpent
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(contest.Questions) {
			continue
		}
		q := contest.Questions[a.QuestionIndex]
		reviews = append(reviews, ContestAnswerReview{
			QuestionIndex:    a.QuestionIndex,
			QuestionText:     q.Text,
			QuestionImage:    q.Image,
			Options:          q.Options,
			CorrectOption:    q.CorrectOption,
			SelectedOption:   a.SelectedOption,
			IsCorrect:        a.IsCorrect,
			TimeSpent:        a.TimeSpent,
			Explanation:      q.Explanation,
			ExplanationImage: q.ExplanationImage,
		})
	}

	avg := 0
	if result.TotalQuestions > 0 {
		avg = int(math.Round(float64(spent) / float64(result.TotalQuestions)))
	}
	return ContestResultReview{
		Result:             result,
		Contest:            withoutAnswerKey(contest),
		Answers:            reviews,
		Rank:               rank,
		TotalParticipants:  len(standings),
		AvgTimePerQuestion: avg,
	}, nil
}

func (s *ContestService) ownedContest(ctx context.Context, p Principal, contestID string) (domain.Contest, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return domain.Contest{}, err
	}
	if contest.CreatedBy != p.UserID {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	return contest, nil
}

func buildContestQuestions(inputs []QuestionInput) []domain.ContestQuestion {
	questions := make([]domain.ContestQuestion, len(inputs))
	for i, in := range inputs {
		questions[i] = domain.ContestQuestion{
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

func withoutAnswerKey(c domain.Contest) domain.Contest {
	c.Questions = nil
	return c
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "duplicate"
	case domain.KindOf(err) == domain.KindUnexpected:
		return "error"
	default:
		return "rejected"
	}
}
