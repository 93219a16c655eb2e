package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type progressRepository interface {
	RecordCompletion(ctx context.Context, enrollment models.Enrollment, lessonID int64, completedAt time.Time) (models.CompletionOutcome, error)
	Promote(ctx context.Context, enrollmentID int64) (bool, error)
}

type lessonReader interface {
	FindWithCourse(ctx context.Context, id int64) (*models.LessonWithCourse, error)
	ListWithProgress(ctx context.Context, courseID, studentID int64) ([]models.LessonProgressItem, error)
}

type progressEnrollmentRepository interface {
	FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error)
}

type courseDetailReader interface {
	FindDetail(ctx context.Context, id int64) (*models.CourseDetail, error)
}

// LessonCompletionResult describes the outcome of marking a lesson complete.
type LessonCompletionResult struct {
	LessonID int64 `json:"lesson_id"`
	// Recorded is false when the lesson had already been completed.
	Recorded bool `json:"recorded"`
	// EnrollmentCompleted is true when this call moved the enrollment to COMPLETED.
	EnrollmentCompleted bool                    `json:"enrollment_completed"`
	EnrollmentStatus    models.EnrollmentStatus `json:"enrollment_status"`
}

// CourseProgressView is a course as a student sees it: lessons with completion flags.
type CourseProgressView struct {
	Course           models.CourseDetail         `json:"course"`
	Enrollment       *models.Enrollment          `json:"enrollment,omitempty"`
	Lessons          []models.LessonProgressItem `json:"lessons"`
	TotalLessons     int                         `json:"total_lessons"`
	CompletedLessons int                         `json:"completed_lessons"`
	Percent          int                         `json:"percent"`
}

// ProgressService records lesson completions and promotes finished enrollments.
type ProgressService struct {
	progress    progressRepository
	lessons     lessonReader
	enrollments progressEnrollmentRepository
	courses     courseDetailReader
	logger      *zap.Logger
	metrics     *MetricsService
	now         func() time.Time
}

// NewProgressService constructs ProgressService.
func NewProgressService(progress progressRepository, lessons lessonReader, enrollments progressEnrollmentRepository, courses courseDetailReader, logger *zap.Logger, metrics *MetricsService) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		progress:    progress,
		lessons:     lessons,
		enrollments: enrollments,
		courses:     courses,
		logger:      logger,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CompleteLesson marks a lesson complete for the acting student. Repeating it is a no-op, but
// completion is re-evaluated on every call.
func (s *ProgressService) CompleteLesson(ctx context.Context, actor models.Actor, lessonID int64) (*LessonCompletionResult, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can complete lessons")
	}

	lesson, err := s.lessons.FindWithCourse(ctx, lessonID)
	if err != nil {
		return nil, lookupError(err, "lesson not found", "failed to load lesson")
	}
	if !lesson.CourseIsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}

	enrollment, err := s.enrollments.FindByCourseAndStudent(ctx, lesson.CourseID, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
		}
		return nil, appErrors.Storage(err, "failed to load enrollment")
	}

	outcome, err := s.progress.RecordCompletion(ctx, *enrollment, lesson.ID, s.now())
	if err != nil {
		return nil, appErrors.Storage(err, "failed to record lesson progress")
	}
	if outcome.Recorded {
		s.metrics.RecordLessonCompleted()
	}

	status := enrollment.Status
	if outcome.Promoted {
		status = models.EnrollmentStatusCompleted
		s.enrollmentCompleted(enrollment)
	}

	return &LessonCompletionResult{
		LessonID:            lesson.ID,
		Recorded:            outcome.Recorded,
		EnrollmentCompleted: outcome.Promoted,
		EnrollmentStatus:    status,
	}, nil
}

// ReevaluateCompletion promotes the student's enrollment to COMPLETED once every lesson of the
// course has progress. It never demotes and does nothing for courses without lessons.
func (s *ProgressService) ReevaluateCompletion(ctx context.Context, courseID, studentID int64) (bool, error) {
	enrollment, err := s.enrollments.FindByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Storage(err, "failed to load enrollment")
	}

	promoted, err := s.progress.Promote(ctx, enrollment.ID)
	if err != nil {
		return false, appErrors.Storage(err, "failed to complete enrollment")
	}
	if promoted {
		s.enrollmentCompleted(enrollment)
	}
	return promoted, nil
}

func (s *ProgressService) enrollmentCompleted(enrollment *models.Enrollment) {
	s.metrics.RecordEnrollmentCompleted(CompletionTriggerLessons)
	s.logger.Info("enrollment completed",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("course_id", enrollment.CourseID),
		zap.Int64("student_id", enrollment.StudentID),
	)
}

// CourseProgress returns an active course with the acting student's per-lesson completion.
func (s *ProgressService) CourseProgress(ctx context.Context, actor models.Actor, courseID int64) (*CourseProgressView, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students have course progress")
	}

	course, err := s.courses.FindDetail(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !course.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	view := &CourseProgressView{Course: *course}

	enrollment, err := s.enrollments.FindByCourseAndStudent(ctx, courseID, actor.UserID)
	switch {
	case err == nil:
		view.Enrollment = enrollment
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Storage(err, "failed to load enrollment")
	}

	lessons, err := s.lessons.ListWithProgress(ctx, courseID, actor.UserID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list lessons")
	}
	view.Lessons = lessons
	view.TotalLessons = len(lessons)
	for _, lesson := range lessons {
		if lesson.Completed {
			view.CompletedLessons++
		}
	}
	view.Percent = completionPercent(view.CompletedLessons, view.TotalLessons)

	return view, nil
}
