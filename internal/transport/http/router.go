package http

import (
	"net/http"
	"slices"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/domain"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the use cases and adapters the router exposes.
type Services struct {
	Auth     *app.AuthService
	Quizzes  *app.QuizService
	Contests *app.ContestService
	Images   app.ImageStore
	Tokens   TokenVerifier
}

// Options tune the router. Zero values pick development defaults.
type Options struct {
	// Production hides internal error detail from responses.
	Production  bool
	CORSOrigins []string
	// UploadDir is served under /uploads when set.
	UploadDir    string
	RateLimiter  *RateLimiter
	PingInterval time.Duration
	Now          func() time.Time
}

// NewRouter wires middleware and every API route.
func NewRouter(svc Services, opts Options) *gin.Engine {
	useJSONFieldNames()
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = NewRateLimiter(20, 20)
	}

	h := &Handler{
		auth:         svc.Auth,
		quizzes:      svc.Quizzes,
		contests:     svc.Contests,
		images:       svc.Images,
		now:          opts.Now,
		exposeErrors: !opts.Production,
		pingInterval: opts.PingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.CORSOrigins),
		},
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), MetricsMiddleware(), cors.New(corsConfig(opts.CORSOrigins)))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Message: "Route not found", Kind: domain.KindNotFound})
	})

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	authenticated := Authenticate(svc.Tokens)
	adminOnly := RequireRole(domain.RoleAdmin)

	auth := r.Group("/api/auth")
	{
		limited := auth.Group("", RateLimiterMiddleware(opts.RateLimiter))
		limited.POST("/register", h.register)
		limited.POST("/login", h.login)

		auth.GET("/profile", authenticated, h.profile)
		auth.PUT("/profile", authenticated, h.updateProfile)
		auth.POST("/profile/upload-picture", authenticated, h.uploadProfilePicture)
		auth.GET("/stats", authenticated, h.stats)
	}

	adminQuiz := r.Group("/api/admin/quiz", authenticated, adminOnly)
	{
		adminQuiz.POST("/create", h.createQuiz)
		adminQuiz.POST("/upload-image", h.uploadImage("questions"))
		adminQuiz.GET("/my-quizzes", h.myQuizzes)
		adminQuiz.GET("/:quizId", h.myQuiz)
		adminQuiz.PUT("/:quizId", h.updateQuiz)
		adminQuiz.DELETE("/:quizId", h.deleteQuiz)
	}

	userQuiz := r.Group("/api/user/quiz", authenticated)
	{
		userQuiz.GET("/all", h.availableQuizzes)
		userQuiz.GET("/history", h.quizHistory)
		userQuiz.GET("/:quizId/attempt", h.quizForAttempt)
		userQuiz.POST("/:quizId/submit", h.submitQuiz)
		userQuiz.GET("/result/:resultId", h.quizResult)
		userQuiz.DELETE("/result/:resultId", h.deleteQuizResult)
	}

	contest := r.Group("/api/contest", authenticated)
	{
		admin := contest.Group("/admin", adminOnly)
		admin.POST("/create", h.createContest)
		admin.POST("/upload-image", h.uploadImage("contests"))
		admin.GET("/my-contests", h.myContests)
		admin.GET("/:contestId", h.myContest)
		admin.PUT("/:contestId", h.updateContest)
		admin.DELETE("/:contestId", h.deleteContest)
		admin.GET("/:contestId/leaderboard", h.adminLeaderboard)
		admin.GET("/:contestId/leaderboard/live", h.liveLeaderboard)

		contest.GET("/all", h.listContests)
		contest.GET("/history", h.contestHistory)
		contest.GET("/result/:resultId", h.contestResult)
		contest.GET("/:contestId/attempt", h.contestForAttempt)
		contest.POST("/:contestId/submit", h.submitContest)
		contest.GET("/:contestId/leaderboard", h.contestLeaderboard)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// originChecker admits websocket handshakes without an Origin header (non-browser clients) and
// those from an allowed origin.
func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(origins) == 0 || slices.Contains(origins, origin)
	}
}
