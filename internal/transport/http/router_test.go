package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/auth"
	"quizify-service/internal/domain"
	"quizify-service/internal/infra/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeImages struct {
	folders []string
}

func (f *fakeImages) Save(_ context.Context, folder string, src io.Reader, _ int64) (string, error) {
	if _, err := io.ReadAll(src); err != nil {
		return "", err
	}
	f.folders = append(f.folders, folder)
	return "/uploads/" + folder + "/image.webp", nil
}

type testServer struct {
	router   *gin.Engine
	store    *memory.Store
	tokens   *auth.TokenService
	auth     *app.AuthService
	contests *app.ContestService
	images   *fakeImages
	now      time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		store:  memory.NewStore(),
		images: &fakeImages{},
		now:    time.Now().UTC().Truncate(time.Second),
	}
	clock := func() time.Time { return s.now }

	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	s.tokens = tokens
	s.auth = app.NewAuthService(s.store, s.store, s.store, auth.NewHasher(bcrypt.MinCost), tokens, s.images)
	s.contests = app.NewContestServiceWithClock(s.store, s.store, s.store, memory.NewAttemptClockWithClock(clock), nil, clock)
	quizzes := app.NewQuizServiceWithClock(s.store, s.store, s.store, clock)

	s.router = NewRouter(Services{
		Auth:     s.auth,
		Quizzes:  quizzes,
		Contests: s.contests,
		Images:   s.images,
		Tokens:   tokens,
	}, Options{
		CORSOrigins:  []string{"http://localhost:3000"},
		RateLimiter:  NewRateLimiter(100, 100),
		PingInterval: time.Second,
		Now:          clock,
	})
	return s
}

// admin provisions an admin account and returns its bearer token.
func (s *testServer) admin(t *testing.T) string {
	t.Helper()
	user, err := s.auth.CreateAdmin(context.Background(), "Admin", "admin@example.com", "secret")
	require.NoError(t, err)
	token, err := s.tokens.Issue(app.Principal{UserID: user.ID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	return token
}

// participant registers through the API and returns the bearer token.
func (s *testServer) participant(t *testing.T, name, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createLiveContest(t *testing.T, adminToken string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/contest/admin/create", adminToken, gin.H{
		"title":     "Lunch sprint",
		"startTime": s.now.Add(-time.Minute).Format(time.RFC3339),
		"endTime":   s.now.Add(10 * time.Minute).Format(time.RFC3339),
		"duration":  5,
		"questions": []gin.H{
			{"questionText": "1+1", "options": []string{"1", "2"}, "correctOption": 1},
			{"questionText": "2+2", "options": []string{"4", "5"}, "correctOption": 0},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["contest"].(map[string]any)["_id"].(string)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Route not found", body["message"])
	assert.Equal(t, "not_found", body["kind"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.participant(t, "Alice", "alice@example.com")

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Again", "email": "alice@example.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", decode(t, rec)["kind"])

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "user", user["role"])

	rec = s.do(t, http.MethodPut, "/api/auth/profile", token, gin.H{"college": "MIT", "role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	user = decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "MIT", user["college"])
	assert.Equal(t, "user", user["role"])

	rec = s.do(t, http.MethodGet, "/api/auth/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["stats"].(map[string]any)
	assert.EqualValues(t, 0, stats["totalQuizzes"])
	assert.Nil(t, stats["bestContestRank"])
}

func TestAuthenticationFailures(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication", decode(t, rec)["kind"])

	rec = s.do(t, http.MethodGet, "/api/auth/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := auth.NewTokenService("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(app.Principal{UserID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/api/contest/admin/my-contests", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGate(t *testing.T) {
	s := newTestServer(t)
	token := s.participant(t, "Alice", "alice@example.com")

	rec := s.do(t, http.MethodPost, "/api/admin/quiz/create", token, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "authorization", decode(t, rec)["kind"])

	rec = s.do(t, http.MethodGet, "/api/contest/admin/my-contests", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBindingErrorsNameFields(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Alice", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation", body["kind"])
	fields := body["errors"].(map[string]any)
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "is required", fields["password"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["message"])
}

func TestQuizLifecycle(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	userToken := s.participant(t, "Alice", "alice@example.com")

	rec := s.do(t, http.MethodPost, "/api/admin/quiz/create", adminToken, gin.H{
		"title":       "Arithmetic",
		"description": "warm up",
		"questions": []gin.H{
			{"questionText": "1+1", "options": []string{"1", "2"}, "correctOption": 1, "explanation": "count"},
			{"questionText": "2+2", "options": []string{"4", "5"}, "correctOption": 0},
			{"questionText": "3+3", "options": []string{"5", "6"}, "correctOption": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	quiz := decode(t, rec)["quiz"].(map[string]any)
	quizID := quiz["_id"].(string)
	assert.EqualValues(t, 30, quiz["duration"])
	questions := quiz["questions"].([]any)
	firstID := questions[0].(map[string]any)["_id"].(string)

	rec = s.do(t, http.MethodGet, "/api/user/quiz/"+quizID+"/attempt", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	attempt := decode(t, rec)["quiz"].(map[string]any)
	for _, q := range attempt["questions"].([]any) {
		_, leaked := q.(map[string]any)["correctOption"]
		assert.False(t, leaked, "answer key must not be sent to participants")
	}

	rec = s.do(t, http.MethodPost, "/api/user/quiz/"+quizID+"/submit", userToken, gin.H{
		"answers":        []gin.H{{"questionId": firstID, "selectedOption": 1, "timeSpent": 4}},
		"totalTimeTaken": 40,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submitted := decode(t, rec)
	assert.EqualValues(t, 33.33, submitted["percentage"])
	resultID := submitted["result"].(map[string]any)["_id"].(string)

	rec = s.do(t, http.MethodGet, "/api/user/quiz/result/"+resultID, userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	review := decode(t, rec)["result"].(map[string]any)
	assert.EqualValues(t, 600, review["avgTimePerQuestion"])
	assert.Len(t, review["detailedAnswers"], 1)

	rec = s.do(t, http.MethodGet, "/api/user/quiz/history", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["results"], 1)

	rec = s.do(t, http.MethodGet, "/api/admin/quiz/my-quizzes", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	owned := decode(t, rec)["quizzes"].([]any)
	require.Len(t, owned, 1)
	assert.EqualValues(t, 1, owned[0].(map[string]any)["attemptCount"])

	rec = s.do(t, http.MethodDelete, "/api/admin/quiz/"+quizID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/user/quiz/result/"+resultID, userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContestFlow(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	alice := s.participant(t, "Alice", "alice@example.com")
	bob := s.participant(t, "Bob", "bob@example.com")
	contestID := s.createLiveContest(t, adminToken)

	rec := s.do(t, http.MethodGet, "/api/contest/all", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode(t, rec)["contests"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, true, listed[0].(map[string]any)["isLive"])

	rec = s.do(t, http.MethodGet, "/api/contest/"+contestID+"/leaderboard", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/contest/"+contestID+"/attempt", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	attempt := decode(t, rec)
	assert.EqualValues(t, 5, attempt["contest"].(map[string]any)["duration"])
	assert.Len(t, attempt["questions"], 2)

	s.now = s.now.Add(20 * time.Second)
	rec = s.do(t, http.MethodPost, "/api/contest/"+contestID+"/submit", alice, gin.H{
		"answers": []gin.H{
			{"questionIndex": 0, "selectedOption": 1, "timeSpent": 10},
			{"questionIndex": 1, "selectedOption": nil, "timeSpent": 10},
		},
		"startedAt": s.now.Add(-time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode(t, rec)["result"].(map[string]any)
	assert.EqualValues(t, 50, result["percentage"])
	assert.EqualValues(t, 20, result["timeTaken"])

	rec = s.do(t, http.MethodPost, "/api/contest/"+contestID+"/submit", alice, gin.H{"answers": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You have already submitted this contest", decode(t, rec)["message"])

	rec = s.do(t, http.MethodGet, "/api/contest/"+contestID+"/leaderboard", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode(t, rec)
	assert.EqualValues(t, 1, board["userRank"])
	entry := board["leaderboard"].([]any)[0].(map[string]any)
	_, hasEmail := entry["user"].(map[string]any)["email"]
	assert.False(t, hasEmail)

	rec = s.do(t, http.MethodGet, "/api/contest/"+contestID+"/leaderboard", bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/contest/admin/"+contestID+"/leaderboard", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry = decode(t, rec)["leaderboard"].([]any)[0].(map[string]any)
	assert.Equal(t, "alice@example.com", entry["user"].(map[string]any)["email"])

	rec = s.do(t, http.MethodGet, "/api/contest/history", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode(t, rec)["history"].([]any)
	require.Len(t, history, 1)
	resultID := history[0].(map[string]any)["_id"].(string)

	rec = s.do(t, http.MethodGet, "/api/contest/result/"+resultID, alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.now = s.now.Add(time.Hour)
	rec = s.do(t, http.MethodGet, "/api/contest/result/"+resultID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	review := decode(t, rec)["result"].(map[string]any)
	assert.EqualValues(t, 10, review["avgTimePerQuestion"])
	assert.Len(t, review["detailedAnswers"], 2)

	rec = s.do(t, http.MethodGet, "/api/contest/"+contestID+"/attempt", bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Contest has ended", decode(t, rec)["message"])
}

func TestContestAcceptsLocalDateTimes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	start := s.now.Add(24 * time.Hour)

	rec := s.do(t, http.MethodPost, "/api/contest/admin/create", adminToken, gin.H{
		"title":     "Tomorrow",
		"startTime": start.Format("2006-01-02T15:04"),
		"endTime":   start.Add(time.Hour).Format("2006-01-02T15:04"),
		"questions": []gin.H{{"questionText": "1+1", "options": []string{"1", "2"}, "correctOption": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contest := decode(t, rec)["contest"].(map[string]any)
	assert.Equal(t, "upcoming", contest["status"])

	rec = s.do(t, http.MethodPost, "/api/contest/admin/create", adminToken, gin.H{
		"title":     "Backwards",
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(-time.Hour).Format(time.RFC3339),
		"questions": []gin.H{{"questionText": "1+1", "options": []string{"1", "2"}, "correctOption": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "End time must be after start time", decode(t, rec)["message"])
}

func TestDurationIsBounded(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	start := s.now.Add(24 * time.Hour)
	body := gin.H{
		"title":     "Marathon",
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(time.Hour).Format(time.RFC3339),
		"duration":  100000,
		"questions": []gin.H{{"questionText": "1+1", "options": []string{"1", "2"}, "correctOption": 1}},
	}

	rec := s.do(t, http.MethodPost, "/api/contest/admin/create", adminToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be less than or equal to 1440", decode(t, rec)["errors"].(map[string]any)["duration"])

	body["duration"] = 1440
	rec = s.do(t, http.MethodPost, "/api/contest/admin/create", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contestID := decode(t, rec)["contest"].(map[string]any)["_id"].(string)

	rec = s.do(t, http.MethodPut, "/api/contest/admin/"+contestID, adminToken, gin.H{"duration": 1441})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "duration")
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "q.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("fake image bytes"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/quiz/upload-image", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/uploads/questions/image.webp", decode(t, rec)["imageUrl"])
	assert.Equal(t, []string{"questions"}, s.images.folders)

	rec = s.do(t, http.MethodPost, "/api/contest/admin/upload-image", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No image file provided", decode(t, rec)["message"])
}

func TestRateLimiterRefillsPerInterval(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "buckets are per client")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
}

func TestRateLimiterForgetsIdleFullBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(90 * time.Second)
	assert.True(t, rl.Allow("c"))
	assert.Contains(t, rl.visitors, "a", "a has not refilled yet")
	assert.NotContains(t, rl.visitors, "b")
	assert.Len(t, rl.visitors, 2)

	now = now.Add(90 * time.Second)
	assert.True(t, rl.Allow("c"))
	assert.NotContains(t, rl.visitors, "a")
	assert.Len(t, rl.visitors, 1)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiterMiddlewareRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimiterMiddleware(NewRateLimiter(1, 1)), func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/login", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestUnexpectedErrorsHideDetailInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, production := range []bool{false, true} {
		r := gin.New()
		r.GET("/boom", func(c *gin.Context) { writeError(c, io.ErrUnexpectedEOF, !production) })
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "unexpected", body["kind"])
		_, hasDetail := body["error"]
		assert.Equal(t, !production, hasDetail)
	}
}
