package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforge/internal/account/models"
	id "quizforge/pkg/domain"
	"quizforge/pkg/platform/sentinel"
)

// PostgresStore persists users in PostgreSQL through ad-hoc parameterized
// queries.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, full_name, birth_date, institution, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		u.ID.String(), u.Email, u.PasswordHash, u.Role.String(),
		u.FullName, u.BirthDate, nullable(u.Institution), nullable(u.Department),
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, full_name, birth_date, institution, department, last_login, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID.String())
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, full_name, birth_date, institution, department, last_login, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, full_name = $4, birth_date = $5,
		    institution = $6, department = $7, last_login = $8, updated_at = $9
		WHERE id = $1
	`,
		u.ID.String(), u.Email, u.PasswordHash, u.FullName, u.BirthDate,
		nullable(u.Institution), nullable(u.Department), u.LastLogin, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByRole(ctx context.Context, role id.Role) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, password_hash, role, full_name, birth_date, institution, department, last_login, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY full_name
	`, role.String())
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		idStr, role string
		institution *string
		department  *string
	)
	if err := row.Scan(
		&idStr, &u.Email, &u.PasswordHash, &role, &u.FullName,
		&u.BirthDate, &institution, &department, &u.LastLogin,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := id.ParseUserID(idStr)
	if err != nil {
		return nil, err
	}
	u.ID = parsed
	u.Role = id.Role(role)
	if institution != nil {
		u.Institution = *institution
	}
	if department != nil {
		u.Department = *department
	}
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
