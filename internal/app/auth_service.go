package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"quizify-service/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AuthService covers registration, login and the caller's own profile.
type AuthService struct {
	users          UserRepository
	results        ResultRepository
	contestResults ContestResultRepository
	hasher         PasswordHasher
	tokens         TokenIssuer
	images         ImageStore
	now            func() time.Time
}

func NewAuthService(users UserRepository, results ResultRepository, contestResults ContestResultRepository,
	hasher PasswordHasher, tokens TokenIssuer, images ImageStore) *AuthService {
	return &AuthService{
		users:          users,
		results:        results,
		contestResults: contestResults,
		hasher:         hasher,
		tokens:         tokens,
		images:         images,
		now:            time.Now,
	}
}

// Session is what a successful register or login hands back.
type Session struct {
	Token string
	User  domain.User
}

// ProfileUpdate carries the optional profile fields; nil leaves a field untouched.
type ProfileUpdate struct {
	Name           *string
	College        *string
	Bio            *string
	ProfilePicture *string
}

// UserStats aggregates a user's quiz and contest history.
type UserStats struct {
	TotalQuizzes      int  `json:"totalQuizzes"`
	AvgQuizScore      int  `json:"avgQuizScore"`
	TotalContests     int  `json:"totalContests"`
	AvgRankPercentile int  `json:"avgRankPercentile"`
	BestContestRank   *int `json:"bestContestRank"`
}

// Register creates a participant account; admins are never created here.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	user, err := s.createUser(ctx, name, email, password, domain.RoleParticipant)
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Login checks credentials and issues a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return Session{}, domain.ErrInvalidCredentials
	}
	return s.session(user)
}

// CreateAdmin provisions an admin account. It is reachable from operator tooling only.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (domain.User, error) {
	return s.createUser(ctx, name, email, password, domain.RoleAdmin)
}

// BootstrapAdmin makes sure the default admin exists and reports whether it had to be created.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}
	if _, err := s.CreateAdmin(ctx, "Admin", email, password); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) Profile(ctx context.Context, p Principal) (domain.User, error) {
	return s.users.GetUser(ctx, p.UserID)
}

// UpdateProfile changes the caller's profile fields. Email and role are not editable.
func (s *AuthService) UpdateProfile(ctx context.Context, p Principal, update ProfileUpdate) (domain.User, error) {
	user, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.College != nil {
		user.College = *update.College
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.ProfilePicture != nil {
		user.ProfilePicture = *update.ProfilePicture
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// UploadProfilePicture stores the image and points the caller's profile at it.
func (s *AuthService) UploadProfilePicture(ctx context.Context, p Principal, src io.Reader, size int64) (domain.User, error) {
	if _, err := s.users.GetUser(ctx, p.UserID); err != nil {
		return domain.User{}, err
	}
	url, err := s.images.Save(ctx, "profiles", src, size)
	if err != nil {
		return domain.User{}, err
	}
	return s.UpdateProfile(ctx, p, ProfileUpdate{ProfilePicture: &url})
}

// Stats summarizes the caller's quiz scores and contest standings.
func (s *AuthService) Stats(ctx context.Context, p Principal) (UserStats, error) {
	var (
		quizResults    []domain.Result
		contestResults []domain.ContestResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quizResults, err = s.results.ListResultsByUser(gctx, p.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		contestResults, err = s.contestResults.ListContestResultsByUser(gctx, p.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return UserStats{}, fmt.Errorf("load history: %w", err)
	}

	stats := UserStats{TotalQuizzes: len(quizResults), TotalContests: len(contestResults)}
	if len(quizResults) > 0 {
		total := 0.0
		for _, r := range quizResults {
			total += r.Percentage
		}
		stats.AvgQuizScore = int(math.Round(total / float64(len(quizResults))))
	}

	placements, err := placeResults(ctx, s.contestResults, contestResults)
	if err != nil {
		return UserStats{}, err
	}
	if len(placements) > 0 {
		sum := 0
		best := placements[0].Rank
		for _, pl := range placements {
			sum += pl.Percentile
			if pl.Rank < best {
				best = pl.Rank
			}
		}
		stats.AvgRankPercentile = int(math.Round(float64(sum) / float64(len(placements))))
		stats.BestContestRank = &best
	}
	return stats, nil
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role domain.Role) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return domain.User{}, domain.Validation("Name, email and password are required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, fmt.Errorf("look up email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) session(user domain.User) (Session, error) {
	token, err := s.tokens.Issue(Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
