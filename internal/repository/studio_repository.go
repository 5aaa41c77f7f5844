package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// StudioRepository manages studio persistence.
type StudioRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Studio, error)
	ListActive(ctx context.Context) ([]domain.Studio, error)
}

type studioRepository struct {
	pool *pgxpool.Pool
}

// NewStudioRepository builds the repository.
func NewStudioRepository(pool *pgxpool.Pool) StudioRepository {
	return &studioRepository{pool: pool}
}

func (r *studioRepository) GetByID(ctx context.Context, id string) (*domain.Studio, error) {
	const query = `
        SELECT id, name, is_active, created_at, updated_at
        FROM studios WHERE id=$1`
	var studio domain.Studio
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&studio.ID,
		&studio.Name,
		&studio.IsActive,
		&studio.CreatedAt,
		&studio.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &studio, nil
}

func (r *studioRepository) ListActive(ctx context.Context) ([]domain.Studio, error) {
	const query = `
        SELECT id, name, is_active, created_at, updated_at
        FROM studios WHERE is_active = TRUE
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Studio
	for rows.Next() {
		var studio domain.Studio
		if err := rows.Scan(&studio.ID, &studio.Name, &studio.IsActive, &studio.CreatedAt, &studio.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, studio)
	}
	return result, rows.Err()
}

// CategoryRepository manages categories and subcategories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListActiveRoots(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `id, parent_id, name, sla_hours, is_active, created_at, updated_at`

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	categories, err := scanCategories(rows)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &categories[0], nil
}

func (r *categoryRepository) ListActiveRoots(ctx context.Context) ([]domain.Category, error) {
	const query = `SELECT ` + categoryColumns + ` FROM categories
        WHERE is_active = TRUE AND parent_id IS NULL
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}

func scanCategories(rows pgx.Rows) ([]domain.Category, error) {
	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.ParentID,
			&category.Name,
			&category.SLAHours,
			&category.IsActive,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
