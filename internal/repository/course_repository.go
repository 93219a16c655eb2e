package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

const courseDetailSelect = `SELECT c.id, c.title, c.description, c.category_id, c.instructor_id, c.is_active, c.created_at,
cc.name AS category_name, u.full_name AS instructor_name
FROM courses c
JOIN course_categories cc ON cc.id = c.category_id
JOIN users u ON u.id = c.instructor_id`

// CourseRepository persists courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns the course row.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, title, description, category_id, instructor_id, is_active, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindDetail returns the course joined with category and instructor names.
func (r *CourseRepository) FindDetail(ctx context.Context, id int64) (*models.CourseDetail, error) {
	query := courseDetailSelect + ` WHERE c.id = $1`
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course detail: %w", err)
	}
	return &course, nil
}

// List returns course details narrowed by the filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.InstructorID != nil {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, *filter.InstructorID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "c.is_active = TRUE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := courseDetailSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.created_at DESC, c.id DESC"

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Catalog lists active courses for a student, flagging those already enrolled. The search term
// matches title, description, category name or instructor name.
func (r *CourseRepository) Catalog(ctx context.Context, studentID int64, search string) ([]models.CatalogCourse, error) {
	query := `SELECT c.id, c.title, c.description, c.category_id, c.instructor_id, c.is_active, c.created_at,
cc.name AS category_name, u.full_name AS instructor_name,
EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = $1) AS enrolled
FROM courses c
JOIN course_categories cc ON cc.id = c.category_id
JOIN users u ON u.id = c.instructor_id
WHERE c.is_active = TRUE`
	args := []interface{}{studentID}
	if term := strings.TrimSpace(search); term != "" {
		query += ` AND (c.title ILIKE $2 OR c.description ILIKE $2 OR cc.name ILIKE $2 OR u.full_name ILIKE $2)`
		args = append(args, "%"+term+"%")
	}
	query += ` ORDER BY cc.name, c.title`

	var courses []models.CatalogCourse
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return courses, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (title, description, category_id, instructor_id, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &course.ID, query, course.Title, course.Description, course.CategoryID, course.InstructorID, course.IsActive, course.CreatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update stores the mutable fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET title = :title, description = :description, category_id = :category_id, instructor_id = :instructor_id, is_active = :is_active WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course and, through the foreign key, its lessons. Courses with enrollments
// are protected by the enrollments foreign key.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
