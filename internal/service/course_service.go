package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/database"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/sanitize"
)

type courseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	FindDetail(ctx context.Context, id int64) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error)
	Catalog(ctx context.Context, studentID int64, search string) ([]models.CatalogCourse, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

type categoryReader interface {
	FindByID(ctx context.Context, id int64) (*models.CourseCategory, error)
}

// CourseRequest is the payload for creating or updating a course. InstructorID is required when
// an admin creates a course and ignored for instructors, who always own what they create.
type CourseRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"required,max=2000"`
	CategoryID   int64  `json:"category_id" validate:"required,gt=0"`
	InstructorID *int64 `json:"instructor_id" validate:"omitempty,gt=0"`
	IsActive     *bool  `json:"is_active"`
}

// CourseService manages courses and the student catalog.
type CourseService struct {
	repo       courseRepository
	categories categoryReader
	users      userByIDReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, categories categoryReader, users userByIDReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, categories: categories, users: users, validator: validate, logger: logger}
}

// List returns every course for admins and the instructor's own courses for instructors.
func (s *CourseService) List(ctx context.Context, actor models.Actor, search string) ([]models.CourseDetail, error) {
	filter := models.CourseFilter{Search: search}
	switch {
	case actor.IsAdmin():
	case actor.IsInstructor():
		filter.InstructorID = &actor.UserID
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage courses")
	}

	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list courses")
	}
	return courses, nil
}

// Get returns a course the actor manages.
func (s *CourseService) Get(ctx context.Context, actor models.Actor, id int64) (*models.CourseDetail, error) {
	course, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(course.Course, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}
	return course, nil
}

// Catalog lists active courses for the acting student.
func (s *CourseService) Catalog(ctx context.Context, actor models.Actor, search string) ([]models.CatalogCourse, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "the catalog is for students")
	}
	courses, err := s.repo.Catalog(ctx, actor.UserID, search)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list catalog")
	}
	return courses, nil
}

// Create adds a course.
func (s *CourseService) Create(ctx context.Context, actor models.Actor, req CourseRequest) (*models.Course, error) {
	req = cleanCourseRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}

	var instructorID int64
	switch {
	case actor.IsInstructor():
		instructorID = actor.UserID
	case actor.IsAdmin():
		if req.InstructorID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor_id is required")
		}
		instructorID = *req.InstructorID
		if err := s.ensureInstructor(ctx, instructorID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create courses")
	}

	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		InstructorID: instructorID,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Storage(err, "failed to create course")
	}

	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.Int64("instructor_id", instructorID))
	return course, nil
}

// Update changes a course. Only admins may hand a course to another instructor.
func (s *CourseService) Update(ctx context.Context, actor models.Actor, id int64, req CourseRequest) (*models.Course, error) {
	req = cleanCourseRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(*course, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}

	if req.InstructorID != nil && *req.InstructorID != course.InstructorID {
		if !actor.IsAdmin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can reassign a course")
		}
		if err := s.ensureInstructor(ctx, *req.InstructorID); err != nil {
			return nil, err
		}
		course.InstructorID = *req.InstructorID
	}
	if req.CategoryID != course.CategoryID {
		if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		course.CategoryID = req.CategoryID
	}

	course.Title = req.Title
	course.Description = req.Description
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Storage(err, "failed to update course")
	}
	return course, nil
}

// Delete removes a course and its lessons. Courses that still have enrollments cannot be deleted.
func (s *CourseService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(*course, actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this course")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "course still has enrollments")
		}
		return appErrors.Storage(err, "failed to delete course")
	}

	s.logger.Info("course deleted", zap.Int64("course_id", id), zap.Int64("actor_id", actor.UserID))
	return nil
}

func (s *CourseService) ensureInstructor(ctx context.Context, id int64) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "instructor not found", "failed to load instructor")
	}
	if user.Role != models.RoleInstructor || !user.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, "instructor_id must reference an active instructor")
	}
	return nil
}

func (s *CourseService) ensureCategory(ctx context.Context, id int64) error {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "category not found", "failed to load category")
	}
	if !category.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, "category is inactive")
	}
	return nil
}

func cleanCourseRequest(req CourseRequest) CourseRequest {
	req.Title = sanitize.Text(req.Title)
	req.Description = sanitize.Text(req.Description)
	return req
}
