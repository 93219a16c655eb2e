package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, courseID, studentID int64, enrolledAt time.Time) (*models.Enrollment, bool, error)
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error)
	ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error
	CompleteWithBackfill(ctx context.Context, enrollment models.Enrollment, completedAt time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type userReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// EnrollByEmailRequest is the payload a course manager sends to add a student.
type EnrollByEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SetStatusRequest is the payload for a manual status change.
type SetStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=IN_PROGRESS COMPLETED"`
}

// EnrollmentResult reports the enrollment for the pair and whether this call created it.
// Created is false when the student was already enrolled.
type EnrollmentResult struct {
	Enrollment *models.Enrollment `json:"enrollment"`
	Created    bool               `json:"created"`
}

// EnrollmentService orchestrates the enrollment lifecycle.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, users userReader, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		users:     users,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enroll registers a student to an active course. Enrolling twice is not an error: the existing
// enrollment is returned with Created=false.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID, studentID int64) (*EnrollmentResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	return s.enroll(ctx, course, studentID)
}

// EnrollByEmail lets a course manager enroll an active student identified by email.
func (s *EnrollmentService) EnrollByEmail(ctx context.Context, actor models.Actor, courseID int64, req EnrollByEmailRequest) (*EnrollmentResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "a valid email is required")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(*course, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}

	student, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, lookupError(err, "no active student with that email", "failed to load student")
	}
	if student.Role != models.RoleStudent || !student.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active student with that email")
	}

	return s.enroll(ctx, course, student.ID)
}

func (s *EnrollmentService) enroll(ctx context.Context, course *models.Course, studentID int64) (*EnrollmentResult, error) {
	if !course.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	enrollment, created, err := s.repo.Create(ctx, course.ID, studentID, s.now())
	if err != nil {
		return nil, appErrors.Storage(err, "failed to enroll student")
	}

	if created {
		s.metrics.RecordEnrollmentCreated()
		s.logger.Info("student enrolled",
			zap.Int64("enrollment_id", enrollment.ID),
			zap.Int64("course_id", course.ID),
			zap.Int64("student_id", studentID),
		)
	}

	return &EnrollmentResult{Enrollment: enrollment, Created: created}, nil
}

// RemoveEnrollment hard-deletes an enrollment. The student's lesson progress is kept, so a later
// re-enrollment resumes where the student left off.
func (s *EnrollmentService) RemoveEnrollment(ctx context.Context, actor models.Actor, enrollmentID int64) error {
	enrollment, course, err := s.loadManaged(ctx, actor, enrollmentID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, enrollment.ID); err != nil {
		return appErrors.Storage(err, "failed to remove enrollment")
	}

	s.logger.Info("enrollment removed",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("course_id", course.ID),
		zap.Int64("student_id", enrollment.StudentID),
		zap.Int64("actor_id", actor.UserID),
	)
	return nil
}

// SetStatus changes the enrollment status on behalf of a course manager. Completing an enrollment
// records every outstanding lesson of the course for the student in the same transaction.
// Reopening keeps existing progress.
func (s *EnrollmentService) SetStatus(ctx context.Context, actor models.Actor, enrollmentID int64, req SetStatusRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "status must be IN_PROGRESS or COMPLETED")
	}

	enrollment, _, err := s.loadManaged(ctx, actor, enrollmentID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.EnrollmentStatusCompleted:
		backfilled, err := s.repo.CompleteWithBackfill(ctx, *enrollment, s.now())
		if err != nil {
			return nil, appErrors.Storage(err, "failed to complete enrollment")
		}
		if enrollment.Status != models.EnrollmentStatusCompleted {
			s.metrics.RecordEnrollmentCompleted(CompletionTriggerManual)
		}
		s.logger.Info("enrollment completed manually",
			zap.Int64("enrollment_id", enrollment.ID),
			zap.Int64("backfilled_lessons", backfilled),
			zap.Int64("actor_id", actor.UserID),
		)
	default:
		if enrollment.Status != req.Status {
			if err := s.repo.UpdateStatus(ctx, enrollment.ID, req.Status); err != nil {
				return nil, appErrors.Storage(err, "failed to update enrollment status")
			}
			s.logger.Info("enrollment reopened",
				zap.Int64("enrollment_id", enrollment.ID),
				zap.Int64("actor_id", actor.UserID),
			)
		}
	}

	enrollment.Status = req.Status
	return enrollment, nil
}

// ListForCourse returns the roster of a course for its managers.
func (s *EnrollmentService) ListForCourse(ctx context.Context, actor models.Actor, courseID int64) ([]models.EnrollmentDetail, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(*course, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}

	enrollments, err := s.repo.ListDetails(ctx, models.EnrollmentFilter{CourseID: &course.ID})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListForStudent returns a student's enrollments. Students may only list their own.
func (s *EnrollmentService) ListForStudent(ctx context.Context, actor models.Actor, studentID int64) ([]models.EnrollmentDetail, error) {
	if !actor.IsAdmin() && !(actor.IsStudent() && actor.UserID == studentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view these enrollments")
	}

	enrollments, err := s.repo.ListDetails(ctx, models.EnrollmentFilter{StudentID: &studentID})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *EnrollmentService) loadManaged(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.Enrollment, *models.Course, error) {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}

	course, err := s.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		return nil, nil, lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(*course, actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}
	return enrollment, course, nil
}
