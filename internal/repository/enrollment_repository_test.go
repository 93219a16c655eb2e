package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

var enrollmentRowColumns = []string{"id", "course_id", "student_id", "enrolled_at", "status"}

func TestEnrollmentCreateInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (course_id, student_id) DO NOTHING RETURNING")).
		WithArgs(int64(1), int64(2), now, models.EnrollmentStatusInProgress).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).AddRow(5, 1, 2, now, "IN_PROGRESS"))

	enrollment, created, err := repo.Create(context.Background(), 1, 2, now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusInProgress, enrollment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreateConflictReturnsExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO enrollments").
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE course_id = $1 AND student_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).AddRow(5, 1, 2, now, "COMPLETED"))

	enrollment, created, err := repo.Create(context.Background(), 1, 2, now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreateRetriesWhenConflictingRowVanishes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO enrollments").
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE course_id = $1 AND student_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns))
	mock.ExpectQuery("INSERT INTO enrollments").
		WithArgs(int64(1), int64(2), now, models.EnrollmentStatusInProgress).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).AddRow(9, 1, 2, now, "IN_PROGRESS"))

	enrollment, created, err := repo.Create(context.Background(), 1, 2, now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(9), enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreateStorageError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("INSERT INTO enrollments").WillReturnError(sql.ErrConnDone)

	_, _, err := repo.Create(context.Background(), 1, 2, time.Now())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCompleteWithBackfillCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2 WHERE id = $1")).
		WithArgs(int64(5), models.EnrollmentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (lesson_id, student_id) DO NOTHING")).
		WithArgs(int64(1), int64(2), now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	added, err := repo.CompleteWithBackfill(context.Background(), models.Enrollment{ID: 5, CourseID: 1, StudentID: 2}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWithBackfillRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE enrollments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO lesson_progress").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.CompleteWithBackfill(context.Background(), models.Enrollment{ID: 5, CourseID: 1, StudentID: 2}, time.Now())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListDetailsByInstructor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "enrolled_at", "status", "course_title", "category_name", "instructor_name", "student_name", "student_email"}).
		AddRow(1, 2, 3, now, "IN_PROGRESS", "Go", "Programming", "Ivy", "Sam", "sam@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.instructor_id = $1 ORDER BY e.enrolled_at DESC")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	instructorID := int64(7)
	list, err := repo.ListDetails(context.Background(), models.EnrollmentFilter{InstructorID: &instructorID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sam@example.com", list[0].StudentEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}
