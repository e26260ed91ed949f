package attempt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforge/internal/quiz/models"
	id "quizforge/pkg/domain"
)

// PostgresStore persists attempts with per-question results as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Attempt) error {
	results, err := json.Marshal(a.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_attempts (id, quiz_id, student_id, score, results, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		a.ID.String(), a.QuizID.String(), a.StudentID.String(), a.Score, results, a.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentID id.UserID) ([]*models.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, student_id, score, results, submitted_at
		FROM quiz_attempts
		WHERE student_id = $1
		ORDER BY submitted_at DESC
	`, studentID.String())
	if err != nil {
		return nil, fmt.Errorf("list attempts by student: %w", err)
	}
	defer rows.Close()

	var out []*models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func scanAttempt(row pgx.Row) (*models.Attempt, error) {
	var (
		a          models.Attempt
		rawID      string
		rawQuiz    string
		rawStudent string
		results    []byte
	)
	if err := row.Scan(&rawID, &rawQuiz, &rawStudent, &a.Score, &results, &a.SubmittedAt); err != nil {
		return nil, err
	}
	attemptID, err := id.ParseAttemptID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored attempt id: %w", err)
	}
	quizID, err := id.ParseQuizID(rawQuiz)
	if err != nil {
		return nil, fmt.Errorf("stored quiz id: %w", err)
	}
	studentID, err := id.ParseUserID(rawStudent)
	if err != nil {
		return nil, fmt.Errorf("stored student id: %w", err)
	}
	a.ID = attemptID
	a.QuizID = quizID
	a.StudentID = studentID
	if err := json.Unmarshal(results, &a.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &a, nil
}
