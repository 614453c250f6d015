package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/newsroom-api/internal/models"
)

const categoryColumns = `key, name, description, sort_order, created_at, updated_at`

// CategoryRepository provides database access for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all categories in display order.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY sort_order ASC, name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByKey returns a category by key.
func (r *CategoryRepository) FindByKey(ctx context.Context, key string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE key = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// Create inserts a category. A duplicate key yields ErrDuplicate.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO categories (` + categoryColumns + `) VALUES (:key, :name, :description, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		if translate(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update writes the editable fields of a category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name = :name, description = :description, sort_order = :sort_order, updated_at = :updated_at WHERE key = :key`
	res, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a category. Articles keep their category value.
func (r *CategoryRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}
