package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforge/internal/quiz/models"
	id "quizforge/pkg/domain"
	"quizforge/pkg/platform/sentinel"
)

// PostgresStore persists quizzes with questions as a JSONB column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, q *models.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, instructor_id, title, description, status, questions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		q.ID.String(), q.OwnerID.String(), q.Title, nullable(q.Description),
		string(q.Status), questions, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, quizID id.QuizID) (*models.Quiz, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, instructor_id, title, description, status, questions, created_at, updated_at
		FROM quizzes
		WHERE id = $1
	`, quizID.String())
	q, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find quiz by id: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) Update(ctx context.Context, q *models.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE quizzes
		SET title = $2, description = $3, status = $4, questions = $5, updated_at = $6
		WHERE id = $1
	`,
		q.ID.String(), q.Title, nullable(q.Description), string(q.Status), questions, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, quizID id.QuizID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID.String())
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Quiz, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instructor_id, title, description, status, questions, created_at, updated_at
		FROM quizzes
		WHERE instructor_id = $1
		ORDER BY created_at DESC
	`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("list quizzes by owner: %w", err)
	}
	defer rows.Close()
	return collectQuizzes(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Quiz, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instructor_id, title, description, status, questions, created_at, updated_at
		FROM quizzes
		WHERE status = $1
		ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list quizzes by status: %w", err)
	}
	defer rows.Close()
	return collectQuizzes(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (*models.Quiz, error) {
	var (
		q           models.Quiz
		rawID       string
		rawOwner    string
		description *string
		status      string
		questions   []byte
	)
	if err := row.Scan(&rawID, &rawOwner, &q.Title, &description, &status, &questions, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	quizID, err := id.ParseQuizID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored quiz id: %w", err)
	}
	ownerID, err := id.ParseUserID(rawOwner)
	if err != nil {
		return nil, fmt.Errorf("stored instructor id: %w", err)
	}
	q.ID = quizID
	q.OwnerID = ownerID
	if description != nil {
		q.Description = *description
	}
	q.Status = models.Status(status)
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &q, nil
}

func collectQuizzes(rows pgx.Rows) ([]*models.Quiz, error) {
	var out []*models.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
