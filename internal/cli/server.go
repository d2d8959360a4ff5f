package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/auth"
	"quizify-service/internal/config"
	"quizify-service/internal/infra/media"
	"quizify-service/internal/infra/memory"
	"quizify-service/internal/infra/postgres"
	rediscache "quizify-service/internal/infra/redis"
	transport "quizify-service/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stack is the wired service graph plus whatever has to be released on exit.
type stack struct {
	auth     *app.AuthService
	quizzes  *app.QuizService
	contests *app.ContestService
	images   *media.Store
	tokens   *auth.TokenService
	closers  []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildStack picks Postgres or the in-memory store, and Redis or process-local caches, from cfg.
func buildStack(ctx context.Context, cfg config.Config) (*stack, error) {
	s := &stack{}

	var (
		users          app.UserRepository
		quizzes        app.QuizRepository
		results        app.ResultRepository
		contests       app.ContestRepository
		contestResults app.ContestResultRepository
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		db := postgres.Open(cfg.Postgres.URL)
		s.closers = append(s.closers, func() { _ = db.Close() })

		store := postgres.NewStore(db).WithStandingsReader(postgres.NewStandingsReader(pool))
		users, quizzes, results, contests, contestResults = store, store, store, store, store
		log.Printf("using postgres store")
	} else {
		store := memory.NewStore()
		users, quizzes, results, contests, contestResults = store, store, store, store, store
		log.Printf("postgres url not configured, using in-memory store")
	}

	cacheTTL := config.TTLDuration(cfg.Contest.CacheTTL, time.Minute)
	var attempts app.AttemptClock
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, err
		}
		contests = rediscache.NewContestCache(client, contests, cacheTTL)
		attempts = rediscache.NewAttemptClock(client)
	} else {
		contests = memory.NewContestCache(contests, cacheTTL)
		attempts = memory.NewAttemptClock()
	}

	images, err := media.NewStore(cfg.Uploads.Dir, cfg.Uploads.BaseURL, cfg.Uploads.MaxBytes)
	if err != nil {
		s.Close()
		return nil, err
	}
	tokens, err := auth.NewTokenService(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL))
	if err != nil {
		s.Close()
		return nil, err
	}

	s.images = images
	s.tokens = tokens
	s.auth = app.NewAuthService(users, results, contestResults, auth.NewHasher(bcrypt.DefaultCost), tokens, images)
	s.quizzes = app.NewQuizService(quizzes, results, users)
	s.contests = app.NewContestService(contests, contestResults, users, attempts, nil)
	return s, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	s, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		created, err := s.auth.BootstrapAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		switch {
		case err != nil:
			log.Printf("admin bootstrap failed: %v", err)
		case created:
			log.Printf("default admin %s created", cfg.Admin.Email)
		}
	}

	router := transport.NewRouter(transport.Services{
		Auth:     s.auth,
		Quizzes:  s.quizzes,
		Contests: s.contests,
		Images:   s.images,
		Tokens:   s.tokens,
	}, transport.Options{
		Production:  cfg.IsProduction(),
		CORSOrigins: cfg.Server.CORSOrigins,
		UploadDir:   s.images.Dir(),
		RateLimiter: transport.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizify on :%s (%s)", finalPort, cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
