package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// LessonRepository persists lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByCourse returns the lessons of a course in display order.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error) {
	const query = `SELECT id, course_id, title, description, resource_url, "order" FROM lessons WHERE course_id = $1 ORDER BY "order", id`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListWithProgress returns the lessons of a course flagged with the student's completion.
func (r *LessonRepository) ListWithProgress(ctx context.Context, courseID, studentID int64) ([]models.LessonProgressItem, error) {
	const query = `SELECT l.id, l.course_id, l.title, l.description, l.resource_url, l."order",
EXISTS (SELECT 1 FROM lesson_progress lp WHERE lp.lesson_id = l.id AND lp.student_id = $2) AS completed
FROM lessons l WHERE l.course_id = $1 ORDER BY l."order", l.id`
	var lessons []models.LessonProgressItem
	if err := r.db.SelectContext(ctx, &lessons, query, courseID, studentID); err != nil {
		return nil, fmt.Errorf("list lessons with progress: %w", err)
	}
	return lessons, nil
}

// FindWithCourse returns a lesson joined with its course owner and activity flag.
func (r *LessonRepository) FindWithCourse(ctx context.Context, id int64) (*models.LessonWithCourse, error) {
	const query = `SELECT l.id, l.course_id, l.title, l.description, l.resource_url, l."order",
c.instructor_id, c.is_active AS course_is_active
FROM lessons l JOIN courses c ON c.id = l.course_id WHERE l.id = $1`
	var lesson models.LessonWithCourse
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// NextOrder returns one past the highest order used in the course.
func (r *LessonRepository) NextOrder(ctx context.Context, courseID int64) (int, error) {
	var next int
	if err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX("order"), 0) + 1 FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("next lesson order: %w", err)
	}
	return next, nil
}

// Create inserts a lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	const query = `INSERT INTO lessons (course_id, title, description, resource_url, "order") VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &lesson.ID, query, lesson.CourseID, lesson.Title, lesson.Description, lesson.ResourceURL, lesson.Order); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update stores the mutable fields of a lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	const query = `UPDATE lessons SET title = $2, description = $3, resource_url = $4, "order" = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, lesson.ID, lesson.Title, lesson.Description, lesson.ResourceURL, lesson.Order); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson together with its progress rows.
func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}
