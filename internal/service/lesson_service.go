package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/sanitize"
)

type lessonRepository interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error)
	FindWithCourse(ctx context.Context, id int64) (*models.LessonWithCourse, error)
	NextOrder(ctx context.Context, courseID int64) (int, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id int64) error
}

// LessonRequest is the payload for creating or updating a lesson. A missing order on create
// places the lesson after the last one.
type LessonRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ResourceURL *string `json:"resource_url" validate:"omitempty,max=500,http_url"`
	Order       *int    `json:"order" validate:"omitempty,min=1,max=9999"`
}

// LessonService manages the lessons of a course.
type LessonService struct {
	repo      lessonRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs LessonService.
func NewLessonService(repo lessonRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LessonService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// List returns the lessons of a course the actor manages.
func (s *LessonService) List(ctx context.Context, actor models.Actor, courseID int64) ([]models.Lesson, error) {
	if _, err := s.managedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list lessons")
	}
	return lessons, nil
}

// Create adds a lesson to a course.
func (s *LessonService) Create(ctx context.Context, actor models.Actor, courseID int64, req LessonRequest) (*models.Lesson, error) {
	req = cleanLessonRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid lesson payload")
	}

	if _, err := s.managedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		ResourceURL: req.ResourceURL,
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	} else {
		next, err := s.repo.NextOrder(ctx, courseID)
		if err != nil {
			return nil, appErrors.Storage(err, "failed to determine lesson order")
		}
		lesson.Order = min(next, 9999)
	}

	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Storage(err, "failed to create lesson")
	}
	s.logger.Info("lesson created", zap.Int64("lesson_id", lesson.ID), zap.Int64("course_id", courseID))
	return lesson, nil
}

// Update changes a lesson.
func (s *LessonService) Update(ctx context.Context, actor models.Actor, lessonID int64, req LessonRequest) (*models.Lesson, error) {
	req = cleanLessonRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid lesson payload")
	}

	found, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}

	lesson := found.Lesson
	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.ResourceURL = req.ResourceURL
	if req.Order != nil {
		lesson.Order = *req.Order
	}

	if err := s.repo.Update(ctx, &lesson); err != nil {
		return nil, appErrors.Storage(err, "failed to update lesson")
	}
	return &lesson, nil
}

// Delete removes a lesson and its progress rows. Enrollments already completed stay completed.
func (s *LessonService) Delete(ctx context.Context, actor models.Actor, lessonID int64) error {
	found, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, found.ID); err != nil {
		return appErrors.Storage(err, "failed to delete lesson")
	}
	s.logger.Info("lesson deleted", zap.Int64("lesson_id", found.ID), zap.Int64("course_id", found.CourseID))
	return nil
}

func (s *LessonService) managedCourse(ctx context.Context, actor models.Actor, courseID int64) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(*course, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}
	return course, nil
}

func (s *LessonService) managedLesson(ctx context.Context, actor models.Actor, lessonID int64) (*models.LessonWithCourse, error) {
	lesson, err := s.repo.FindWithCourse(ctx, lessonID)
	if err != nil {
		return nil, lookupError(err, "lesson not found", "failed to load lesson")
	}
	if !CanManage(lesson.Course(), actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}
	return lesson, nil
}

func cleanLessonRequest(req LessonRequest) LessonRequest {
	req.Title = sanitize.Text(req.Title)
	req.Description = sanitize.OptionalText(req.Description)
	if req.ResourceURL != nil {
		url := strings.TrimSpace(*req.ResourceURL)
		if url == "" {
			req.ResourceURL = nil
		} else {
			req.ResourceURL = &url
		}
	}
	return req
}
