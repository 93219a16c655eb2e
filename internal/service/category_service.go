package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/sanitize"
)

type categoryRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.CourseCategoryDetail, error)
	FindByID(ctx context.Context, id int64) (*models.CourseCategory, error)
	Create(ctx context.Context, category *models.CourseCategory) error
	Update(ctx context.Context, category *models.CourseCategory) error
	Deactivate(ctx context.Context, id int64) error
}

// CategoryRequest is the payload for creating or updating a category.
type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryService manages course categories.
type CategoryService struct {
	repo      categoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs CategoryService.
func NewCategoryService(repo categoryRepository, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CategoryService{repo: repo, validator: validate, logger: logger}
}

// List returns categories. Only admins see inactive ones.
func (s *CategoryService) List(ctx context.Context, actor models.Actor) ([]models.CourseCategoryDetail, error) {
	categories, err := s.repo.List(ctx, !actor.IsAdmin())
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list categories")
	}
	return categories, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.CourseCategory, error) {
	req = cleanCategoryRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid category payload")
	}

	category := &models.CourseCategory{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Storage(err, "failed to create category")
	}
	s.logger.Info("category created", zap.Int64("category_id", category.ID))
	return category, nil
}

// Update changes a category.
func (s *CategoryService) Update(ctx context.Context, id int64, req CategoryRequest) (*models.CourseCategory, error) {
	req = cleanCategoryRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid category payload")
	}

	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "category not found", "failed to load category")
	}

	category.Name = req.Name
	category.Description = req.Description
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, appErrors.Storage(err, "failed to update category")
	}
	return category, nil
}

// Deactivate soft deletes a category. Its courses keep referencing it.
func (s *CategoryService) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, "category not found", "failed to load category")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Storage(err, "failed to deactivate category")
	}
	s.logger.Info("category deactivated", zap.Int64("category_id", id))
	return nil
}

func cleanCategoryRequest(req CategoryRequest) CategoryRequest {
	req.Name = sanitize.Text(req.Name)
	req.Description = sanitize.OptionalText(req.Description)
	return req
}
