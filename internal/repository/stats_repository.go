package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// StatsRepository runs the read-only aggregate queries behind statistics and reports.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// CourseEnrollments counts a course's enrollments.
func (r *StatsRepository) CourseEnrollments(ctx context.Context, courseID int64) (models.CompletionCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed
FROM enrollments WHERE course_id = $1`
	var counts models.CompletionCounts
	if err := r.db.GetContext(ctx, &counts, query, courseID); err != nil {
		return counts, fmt.Errorf("count course enrollments: %w", err)
	}
	return counts, nil
}

// InstructorCourses counts an instructor's courses.
func (r *StatsRepository) InstructorCourses(ctx context.Context, instructorID int64) (models.InstructorCourseCounts, error) {
	const query = `SELECT COUNT(*) AS courses, COUNT(*) FILTER (WHERE is_active) AS active_courses
FROM courses WHERE instructor_id = $1`
	var counts models.InstructorCourseCounts
	if err := r.db.GetContext(ctx, &counts, query, instructorID); err != nil {
		return counts, fmt.Errorf("count instructor courses: %w", err)
	}
	return counts, nil
}

// InstructorEnrollments counts enrollments across an instructor's courses.
func (r *StatsRepository) InstructorEnrollments(ctx context.Context, instructorID int64) (models.CompletionCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE e.status = 'COMPLETED') AS completed
FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE c.instructor_id = $1`
	var counts models.CompletionCounts
	if err := r.db.GetContext(ctx, &counts, query, instructorID); err != nil {
		return counts, fmt.Errorf("count instructor enrollments: %w", err)
	}
	return counts, nil
}

// StudentCourses returns lesson counters for each of the student's enrollments in active courses.
func (r *StatsRepository) StudentCourses(ctx context.Context, studentID int64) ([]models.StudentCourseLessons, error) {
	const query = `SELECT c.id AS course_id, c.title, e.status,
(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id) AS total_lessons,
(SELECT COUNT(*) FROM lesson_progress lp JOIN lessons l ON l.id = lp.lesson_id
  WHERE l.course_id = c.id AND lp.student_id = e.student_id) AS completed_lessons
FROM enrollments e JOIN courses c ON c.id = e.course_id
WHERE e.student_id = $1 AND c.is_active = TRUE
ORDER BY c.title, c.id`
	var rows []models.StudentCourseLessons
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student course progress: %w", err)
	}
	return rows, nil
}

// Users summarises the users table.
func (r *StatsRepository) Users(ctx context.Context) (models.UserCounts, error) {
	const query = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE is_active) AS active,
COUNT(*) FILTER (WHERE is_active AND role = 'ADMIN') AS admins,
COUNT(*) FILTER (WHERE is_active AND role = 'INSTRUCTOR') AS instructors,
COUNT(*) FILTER (WHERE is_active AND role = 'STUDENT') AS students
FROM users`
	var counts models.UserCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return counts, fmt.Errorf("count users by role: %w", err)
	}
	return counts, nil
}

// Courses summarises the courses table.
func (r *StatsRepository) Courses(ctx context.Context) (models.CourseCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active FROM courses`
	var counts models.CourseCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return counts, fmt.Errorf("count courses: %w", err)
	}
	return counts, nil
}

// Enrollments counts all enrollments.
func (r *StatsRepository) Enrollments(ctx context.Context) (models.CompletionCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed FROM enrollments`
	var counts models.CompletionCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return counts, fmt.Errorf("count enrollments: %w", err)
	}
	return counts, nil
}

// CourseBreakdown returns per-course enrollment counters, optionally for one instructor.
func (r *StatsRepository) CourseBreakdown(ctx context.Context, instructorID *int64) ([]models.CourseEnrollmentCounts, error) {
	query := `SELECT c.id AS course_id, c.title, cc.name AS category_name, u.full_name AS instructor_name, c.is_active,
COUNT(e.id) AS total, COUNT(e.id) FILTER (WHERE e.status = 'COMPLETED') AS completed
FROM courses c
JOIN course_categories cc ON cc.id = c.category_id
JOIN users u ON u.id = c.instructor_id
LEFT JOIN enrollments e ON e.course_id = c.id`
	var args []interface{}
	if instructorID != nil {
		query += ` WHERE c.instructor_id = $1`
		args = append(args, *instructorID)
	}
	query += ` GROUP BY c.id, cc.name, u.full_name ORDER BY c.title, c.id`

	var rows []models.CourseEnrollmentCounts
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list course enrollment counts: %w", err)
	}
	return rows, nil
}

// MonthlyEnrollments counts enrollments per calendar month (UTC) from since onwards.
// Months without enrollments are absent.
func (r *StatsRepository) MonthlyEnrollments(ctx context.Context, since time.Time) ([]models.MonthlyCount, error) {
	const query = `SELECT date_trunc('month', enrolled_at AT TIME ZONE 'UTC') AS month, COUNT(*) AS count
FROM enrollments WHERE enrolled_at >= $1 GROUP BY 1 ORDER BY 1`
	var rows []models.MonthlyCount
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("count monthly enrollments: %w", err)
	}
	return rows, nil
}
