package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

const enrollmentColumns = `id, course_id, student_id, enrolled_at, status`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create inserts an IN_PROGRESS enrollment unless one already exists for the pair. The unique
// constraint decides races: the losing caller gets the existing row and created=false. If that
// row is deleted before it can be read, the insert is attempted once more.
func (r *EnrollmentRepository) Create(ctx context.Context, courseID, studentID int64, enrolledAt time.Time) (*models.Enrollment, bool, error) {
	query := `INSERT INTO enrollments (course_id, student_id, enrolled_at, status) VALUES ($1, $2, $3, $4)
ON CONFLICT (course_id, student_id) DO NOTHING RETURNING ` + enrollmentColumns

	for attempt := 0; attempt < 2; attempt++ {
		var enrollment models.Enrollment
		err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID, enrolledAt, models.EnrollmentStatusInProgress)
		if err == nil {
			return &enrollment, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("create enrollment: %w", err)
		}

		existing, err := r.FindByCourseAndStudent(ctx, courseID, studentID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("create enrollment: conflicting row vanished twice for course %d student %d", courseID, studentID)
}

// FindByID returns an enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindByCourseAndStudent returns the enrollment for the pair.
func (r *EnrollmentRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 AND student_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by course and student: %w", err)
	}
	return &enrollment, nil
}

// ListDetails returns enrollments enriched with course and student info.
func (r *EnrollmentRepository) ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	query := `SELECT e.id, e.course_id, e.student_id, e.enrolled_at, e.status,
c.title AS course_title, cc.name AS category_name, i.full_name AS instructor_name,
s.full_name AS student_name, s.email AS student_email
FROM enrollments e
JOIN courses c ON c.id = e.course_id
JOIN course_categories cc ON cc.id = c.category_id
JOIN users i ON i.id = c.instructor_id
JOIN users s ON s.id = e.student_id`

	var conditions []string
	var args []interface{}
	if filter.CourseID != nil {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, *filter.CourseID)
	}
	if filter.StudentID != nil {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, *filter.StudentID)
	}
	if filter.InstructorID != nil {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, *filter.InstructorID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.enrolled_at DESC, e.id DESC"

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateStatus sets the enrollment status without touching progress.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE enrollments SET status = $2 WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// CompleteWithBackfill marks the enrollment COMPLETED and records progress for every lesson of
// the course the student has not completed yet, atomically. It returns the number of progress
// rows added.
func (r *EnrollmentRepository) CompleteWithBackfill(ctx context.Context, enrollment models.Enrollment, completedAt time.Time) (backfilled int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin completion transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE enrollments SET status = $2 WHERE id = $1`, enrollment.ID, models.EnrollmentStatusCompleted); err != nil {
		return 0, fmt.Errorf("complete enrollment: %w", err)
	}

	const backfillQuery = `INSERT INTO lesson_progress (lesson_id, student_id, completed_at)
SELECT l.id, $2, $3 FROM lessons l WHERE l.course_id = $1
ON CONFLICT (lesson_id, student_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, backfillQuery, enrollment.CourseID, enrollment.StudentID, completedAt)
	if err != nil {
		return 0, fmt.Errorf("backfill lesson progress: %w", err)
	}
	if backfilled, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("backfill lesson progress: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit enrollment completion: %w", err)
	}
	return backfilled, nil
}

// Delete removes an enrollment. Lesson progress is kept.
func (r *EnrollmentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}
