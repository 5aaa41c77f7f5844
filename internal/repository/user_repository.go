package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// UserRepository loads staff accounts for login and token checks.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const selectUser = `SELECT id, name, email, password_hash, role, is_active, created_at, updated_at FROM users `

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, selectUser+`WHERE id=$1`, id)
}

// GetByEmail matches case-insensitively; emails are stored as entered.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, selectUser+`WHERE LOWER(email)=$1`, strings.ToLower(strings.TrimSpace(email)))
}

// one returns pgx.ErrNoRows when nothing matches.
func (r *userRepository) one(ctx context.Context, query string, arg any) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (*domain.User, error) {
		var user domain.User
		err := row.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		return &user, err
	})
}
