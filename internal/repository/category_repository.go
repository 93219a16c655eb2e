package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// CategoryRepository persists course categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories with their course counts, optionally restricted to active ones.
func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]models.CourseCategoryDetail, error) {
	query := `SELECT cc.id, cc.name, cc.description, cc.is_active, cc.created_at, COUNT(c.id) AS course_count
FROM course_categories cc
LEFT JOIN courses c ON c.category_id = cc.id`
	if activeOnly {
		query += ` WHERE cc.is_active = TRUE`
	}
	query += ` GROUP BY cc.id ORDER BY cc.name`

	var categories []models.CourseCategoryDetail
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID returns a category.
func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*models.CourseCategory, error) {
	const query = `SELECT id, name, description, is_active, created_at FROM course_categories WHERE id = $1`
	var category models.CourseCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.CourseCategory) error {
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_categories (name, description, is_active, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &category.ID, query, category.Name, category.Description, category.IsActive, category.CreatedAt); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update stores the mutable fields of a category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.CourseCategory) error {
	const query = `UPDATE course_categories SET name = :name, description = :description, is_active = :is_active WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Deactivate soft deletes a category.
func (r *CategoryRepository) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE course_categories SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	return nil
}
