package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/repository"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByKey(ctx context.Context, key string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, key string) error
}

// PublicCategoriesKey caches the public category listing.
const PublicCategoriesKey = "public:categories"

// CategoryService manages article categories.
type CategoryService struct {
	repo      categoryRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs the category service.
func NewCategoryService(repo categoryRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns every category in display order.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.Category{Key: req.Key, Name: req.Name, Description: req.Description, SortOrder: req.SortOrder}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "category key already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	s.invalidate(ctx)
	return category, nil
}

// Update replaces the editable fields of a category.
func (s *CategoryService) Update(ctx context.Context, key string, req dto.UpdateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	category.Name = req.Name
	category.Description = req.Description
	category.SortOrder = req.SortOrder
	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	s.invalidate(ctx)
	return category, nil
}

// Delete removes a category.
func (s *CategoryService) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, PublicCategoriesKey); err != nil {
		s.logger.Warn("failed to invalidate category cache", zap.Error(err))
	}
}
