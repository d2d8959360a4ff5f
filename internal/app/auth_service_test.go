package app_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/auth"
	"quizify-service/internal/domain"
	"quizify-service/internal/infra/memory"

	"golang.org/x/crypto/bcrypt"
)

type fakeImages struct {
	saved []string
}

func (f *fakeImages) Save(_ context.Context, folder string, src io.Reader, _ int64) (string, error) {
	if _, err := io.ReadAll(src); err != nil {
		return "", err
	}
	url := "/uploads/" + folder + "/pic.webp"
	f.saved = append(f.saved, url)
	return url, nil
}

func newAuthService(t *testing.T) (*app.AuthService, *memory.Store, *auth.TokenService) {
	t.Helper()
	store := memory.NewStore()
	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	service := app.NewAuthService(store, store, store, auth.NewHasher(bcrypt.MinCost), tokens, &fakeImages{})
	return service, store, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	service, _, tokens := newAuthService(t)

	session, err := service.Register(ctx, "Alice", " Alice@Example.com ", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.User.Role != domain.RoleParticipant || session.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", session.User)
	}
	p, err := tokens.Verify(session.Token)
	if err != nil || p.UserID != session.User.ID {
		t.Fatalf("token does not identify user: %v %+v", err, p)
	}

	if _, err := service.Register(ctx, "Alice 2", "alice@example.com", "pw"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}

	if _, err := service.Login(ctx, "alice@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := service.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := service.Login(ctx, "nobody@example.com", "pw"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newAuthService(t)

	created, err := service.BootstrapAdmin(ctx, "root@example.com", "pw")
	if err != nil || !created {
		t.Fatalf("first bootstrap: %v %v", created, err)
	}
	created, err = service.BootstrapAdmin(ctx, "root@example.com", "pw")
	if err != nil || created {
		t.Fatalf("second bootstrap: %v %v", created, err)
	}
	user, _ := store.GetUserByEmail(ctx, "root@example.com")
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %v", user.Role)
	}
}

func TestUpdateProfileKeepsRoleAndEmail(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newAuthService(t)
	session, _ := service.Register(ctx, "Alice", "alice@example.com", "pw")
	p := app.Principal{UserID: session.User.ID, Role: session.User.Role}

	college := "MIT"
	empty := "  "
	user, err := service.UpdateProfile(ctx, p, app.ProfileUpdate{College: &college, Name: &empty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.College != "MIT" || user.Name != "Alice" || user.Role != domain.RoleParticipant {
		t.Fatalf("unexpected profile %+v", user)
	}

	user, err = service.UploadProfilePicture(ctx, p, strings.NewReader("img"), 3)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if user.ProfilePicture != "/uploads/profiles/pic.webp" {
		t.Fatalf("unexpected picture %q", user.ProfilePicture)
	}
}

func TestStatsAggregatesHistory(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newAuthService(t)
	seedUsers(t, store)
	now := time.Now()

	quizzes := app.NewQuizService(store, store, store)
	quiz, _ := quizzes.CreateQuiz(ctx, admin, threeQuestionQuiz())
	_, _ = quizzes.Submit(ctx, alice, quiz.ID, []app.QuizAnswerInput{
		{QuestionID: quiz.Questions[0].ID, SelectedOption: 1},
		{QuestionID: quiz.Questions[1].ID, SelectedOption: 1},
		{QuestionID: quiz.Questions[2].ID, SelectedOption: 0},
	}, 10)
	_, _ = quizzes.Submit(ctx, alice, quiz.ID, nil, 10)

	contests := app.NewContestService(store, store, store, memory.NewAttemptClock(), nil)
	contest, err := contests.CreateContest(ctx, admin, app.ContestInput{
		Title: "Stats", StartTime: now.Add(-time.Minute), EndTime: now.Add(time.Hour),
		Questions: []app.QuestionInput{{Text: "Q", Options: []string{"a", "b"}, CorrectOption: 0}},
	})
	if err != nil {
		t.Fatalf("create contest: %v", err)
	}
	_, _ = contests.SubmitContest(ctx, alice, contest.ID, app.ContestSubmission{
		Answers: []domain.SubmittedAnswer{{QuestionIndex: 0, SelectedOption: pick(0)}},
	})
	_, _ = contests.SubmitContest(ctx, bob, contest.ID, app.ContestSubmission{})

	stats, err := service.Stats(ctx, alice)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalQuizzes != 2 || stats.AvgQuizScore != 50 {
		t.Fatalf("unexpected quiz stats %+v", stats)
	}
	if stats.TotalContests != 1 || stats.BestContestRank == nil || *stats.BestContestRank != 1 || stats.AvgRankPercentile != 50 {
		t.Fatalf("unexpected contest stats %+v", stats)
	}

	empty, _ := service.Stats(ctx, app.Principal{UserID: "nobody"})
	if empty.BestContestRank != nil || empty.TotalQuizzes != 0 {
		t.Fatalf("expected empty stats, got %+v", empty)
	}
}
