package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// ProgressRepository records lesson completions.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// promoteQuery completes the enrollment once the student has progress on every lesson of its
// course. The status guard lets exactly one concurrent caller observe the promotion.
const promoteQuery = `UPDATE enrollments e SET status = $2
WHERE e.id = $1 AND e.status <> $2
AND (SELECT COUNT(*) FROM lessons l WHERE l.course_id = e.course_id) > 0
AND (SELECT COUNT(*) FROM lessons l WHERE l.course_id = e.course_id) =
    (SELECT COUNT(*) FROM lesson_progress lp JOIN lessons l ON l.id = lp.lesson_id
     WHERE l.course_id = e.course_id AND lp.student_id = e.student_id)`

// RecordCompletion inserts the student's progress row for the lesson and promotes the enrollment
// when that finishes the course, in one transaction. A repeated completion inserts nothing but
// still re-evaluates the promotion.
func (r *ProgressRepository) RecordCompletion(ctx context.Context, enrollment models.Enrollment, lessonID int64, completedAt time.Time) (outcome models.CompletionOutcome, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return outcome, fmt.Errorf("begin progress transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO lesson_progress (lesson_id, student_id, completed_at) VALUES ($1, $2, $3)
ON CONFLICT (lesson_id, student_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insertQuery, lessonID, enrollment.StudentID, completedAt)
	if err != nil {
		return models.CompletionOutcome{}, fmt.Errorf("insert lesson progress: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.CompletionOutcome{}, fmt.Errorf("insert lesson progress: %w", err)
	}

	res, err = tx.ExecContext(ctx, promoteQuery, enrollment.ID, models.EnrollmentStatusCompleted)
	if err != nil {
		return models.CompletionOutcome{}, fmt.Errorf("promote enrollment: %w", err)
	}
	promoted, err := res.RowsAffected()
	if err != nil {
		return models.CompletionOutcome{}, fmt.Errorf("promote enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.CompletionOutcome{}, fmt.Errorf("commit lesson progress: %w", err)
	}
	return models.CompletionOutcome{Recorded: inserted > 0, Promoted: promoted == 1}, nil
}

// Promote completes the enrollment if every lesson of its course has progress. It reports
// whether this call changed the status.
func (r *ProgressRepository) Promote(ctx context.Context, enrollmentID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, promoteQuery, enrollmentID, models.EnrollmentStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("promote enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("promote enrollment: %w", err)
	}
	return affected == 1, nil
}
