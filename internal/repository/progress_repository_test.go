package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

const (
	progressInsertPattern = "INSERT INTO lesson_progress (lesson_id, student_id, completed_at) VALUES ($1, $2, $3)"
	promotePattern        = "WHERE e.id = $1 AND e.status <> $2"
)

var progressEnrollment = models.Enrollment{ID: 7, CourseID: 3, StudentID: 2, Status: models.EnrollmentStatusInProgress}

func TestRecordCompletionInsertsAndPromotesInOneTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(progressInsertPattern)).
		WithArgs(int64(1), int64(2), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(promotePattern)).
		WithArgs(int64(7), models.EnrollmentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.RecordCompletion(context.Background(), progressEnrollment, 1, now)
	require.NoError(t, err)
	assert.True(t, outcome.Recorded)
	assert.True(t, outcome.Promoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCompletionRepeatStillReevaluates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(progressInsertPattern)).
		WithArgs(int64(1), int64(2), now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(promotePattern)).
		WithArgs(int64(7), models.EnrollmentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	outcome, err := repo.RecordCompletion(context.Background(), progressEnrollment, 1, now)
	require.NoError(t, err)
	assert.False(t, outcome.Recorded)
	assert.False(t, outcome.Promoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCompletionRollsBackWhenPromotionFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(progressInsertPattern)).
		WithArgs(int64(1), int64(2), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(promotePattern)).
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, err := repo.RecordCompletion(context.Background(), progressEnrollment, 1, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "promote enrollment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteReportsOnlyTheChangingCall(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(promotePattern)).
		WithArgs(int64(7), models.EnrollmentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(promotePattern)).
		WithArgs(int64(7), models.EnrollmentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	promoted, err := repo.Promote(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, promoted)

	promoted, err = repo.Promote(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, promoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
