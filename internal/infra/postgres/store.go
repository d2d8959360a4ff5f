package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizify-service/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store implements the app repositories on Postgres through bun.
type Store struct {
	db        *bun.DB
	standings *StandingsReader
}

// Open connects bun to the database at dsn.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// WithStandingsReader routes the leaderboard read path through a dedicated pgx pool.
func (s *Store) WithStandingsReader(r *StandingsReader) *Store {
	s.standings = r
	return s
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.NewInsert().Model(newUserRow(*user)).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("u.id = ?", userID).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return row.toDomain()
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("u.email = ?", email).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return row.toDomain()
}

func (s *Store) GetUsers(ctx context.Context, userIDs []string) (map[string]domain.User, error) {
	found := make(map[string]domain.User, len(userIDs))
	if len(userIDs) == 0 {
		return found, nil
	}
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Where("u.id IN (?)", bun.In(userIDs)).Scan(ctx); err != nil {
		return nil, err
	}
	for _, row := range rows {
		user, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		found[user.ID] = user
	}
	return found, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	res, err := s.db.NewUpdate().
		Model(newUserRow(user)).
		Column("name", "college", "bio", "profile_picture").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrUserNotFound)
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(newQuizRow(*quiz)).Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		return insertQuestions(ctx, tx, quiz.ID, quiz.Questions)
	})
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := s.selectQuizzes(&row).Where("q.id = ?", quizID).Scan(ctx)
	if err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) ListPublicQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := s.selectQuizzes(&rows).Where("q.is_public").OrderExpr("q.created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return quizzesToDomain(rows), nil
}

func (s *Store) ListQuizzesByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := s.selectQuizzes(&rows).Where("q.created_by = ?", ownerID).OrderExpr("q.created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return quizzesToDomain(rows), nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz, replaceQuestions bool) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(newQuizRow(quiz)).
			Column("title", "description", "duration", "is_public", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		if err := requireRow(res, domain.ErrQuizNotFound); err != nil {
			return err
		}
		if !replaceQuestions {
			return nil
		}
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quiz.ID).Exec(ctx); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		return insertQuestions(ctx, tx, quiz.ID, quiz.Questions)
	})
}

// DeleteQuiz relies on ON DELETE CASCADE for questions and results.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrQuizNotFound)
}

func (s *Store) CreateResult(ctx context.Context, result *domain.Result) error {
	_, err := s.db.NewInsert().Model(newResultRow(*result)).Exec(ctx)
	return missingParent(err, map[string]error{
		"results_quiz_id_fkey": domain.ErrQuizNotFound,
		"results_user_id_fkey": domain.ErrUserNotFound,
	})
}

func (s *Store) GetResult(ctx context.Context, resultID string) (domain.Result, error) {
	var row resultRow
	if err := s.db.NewSelect().Model(&row).Where("r.id = ?", resultID).Scan(ctx); err != nil {
		return domain.Result{}, notFound(err, domain.ErrResultNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) ListResultsByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	var rows []resultRow
	if err := s.db.NewSelect().Model(&rows).Where("r.user_id = ?", userID).OrderExpr("r.submitted_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	results := make([]domain.Result, len(rows))
	for i, row := range rows {
		results[i] = row.toDomain()
	}
	return results, nil
}

func (s *Store) CountResultsByQuiz(ctx context.Context, quizID string) (int, error) {
	return s.db.NewSelect().Model((*resultRow)(nil)).Where("r.quiz_id = ?", quizID).Count(ctx)
}

func (s *Store) DeleteResult(ctx context.Context, resultID string) error {
	res, err := s.db.NewDelete().Model((*resultRow)(nil)).Where("id = ?", resultID).Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrResultNotFound)
}

func (s *Store) selectQuizzes(model interface{}) *bun.SelectQuery {
	return s.db.NewSelect().Model(model).Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("qn.position ASC")
	})
}

func insertQuestions(ctx context.Context, tx bun.Tx, quizID string, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	rows := newQuestionRows(quizID, questions)
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

func quizzesToDomain(rows []quizRow) []domain.Quiz {
	quizzes := make([]domain.Quiz, len(rows))
	for i, row := range rows {
		quizzes[i] = row.toDomain()
	}
	return quizzes
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

// missingParent maps a foreign key violation to the not-found error of the referenced row,
// keyed by constraint name.
func missingParent(err error, sentinels map[string]error) error {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) || pgErr.Field('C') != foreignKeyViolation {
		return err
	}
	if sentinel, ok := sentinels[pgErr.Field('n')]; ok {
		return sentinel
	}
	return err
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func requireRow(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
