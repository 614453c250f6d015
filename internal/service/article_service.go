package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/repository"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type articleRepository interface {
	List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error)
	FindByID(ctx context.Context, id string) (*models.Article, error)
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Article, error)
	Create(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	UpdateStatus(ctx context.Context, id string, status models.ArticleStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

// PublicArticlesPattern matches every cached public article response.
const PublicArticlesPattern = "public:articles:*"

// ArticleService handles editorial article use-cases.
type ArticleService struct {
	repo      articleRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewArticleService constructs the article service.
func NewArticleService(repo articleRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ArticleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArticleService{repo: repo, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// List returns articles and pagination metadata.
func (s *ArticleService) List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, *models.Pagination, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	articles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list articles")
	}
	if articles == nil {
		articles = []models.Article{}
	}
	return articles, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one article.
func (s *ArticleService) Get(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load article")
	}
	return article, nil
}

// Create stores a new article. The slug is derived from the title when omitted.
func (s *ArticleService) Create(ctx context.Context, req dto.CreateArticleRequest) (*models.Article, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid article payload")
	}
	article := &models.Article{}
	if err := s.apply(article, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, article); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "article url or slug already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create article")
	}
	s.invalidatePublic(ctx)
	return article, nil
}

// Update replaces the editable fields of an article.
func (s *ArticleService) Update(ctx context.Context, id string, req dto.UpdateArticleRequest) (*models.Article, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid article payload")
	}
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(article, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, article); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "article url or slug already exists")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update article")
	}
	s.invalidatePublic(ctx)
	return article, nil
}

// UpdateStatus moves an article between editorial states. Publishing stamps publishedAt when unset.
func (s *ArticleService) UpdateStatus(ctx context.Context, id string, req dto.UpdateArticleStatusRequest) (*models.Article, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status := models.ArticleStatus(req.Status)
	publishedAt := article.PublishedAt
	if status == models.ArticleStatusPublished && publishedAt == nil {
		now := s.now().UTC()
		publishedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, status, publishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update article status")
	}
	article.Status = status
	article.PublishedAt = publishedAt
	s.invalidatePublic(ctx)
	return article, nil
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete article")
	}
	s.invalidatePublic(ctx)
	return nil
}

func (s *ArticleService) apply(article *models.Article, req dto.CreateArticleRequest) error {
	slug := slugify(req.Slug)
	if req.Slug == "" {
		slug = slugify(req.Title)
	}
	if slug == "" {
		return appErrors.Clone(appErrors.ErrValidation, "slug cannot be derived from title")
	}
	status := models.ArticleStatus(req.Status)
	if status == "" {
		status = models.ArticleStatusDraft
	}
	publishedAt := req.PublishedAt
	if status == models.ArticleStatusPublished && publishedAt == nil {
		publishedAt = article.PublishedAt
		if publishedAt == nil {
			now := s.now().UTC()
			publishedAt = &now
		}
	}

	article.Title = strings.TrimSpace(req.Title)
	article.Slug = slug
	article.Summary = req.Summary
	article.Content = req.Content
	article.URL = strings.TrimSpace(req.URL)
	article.ImageURL = req.ImageURL
	article.Author = req.Author
	article.SourceID = req.SourceID
	article.Category = req.Category
	article.Language = strings.ToLower(req.Language)
	article.Status = status
	article.Tags = normalizeTags(req.Tags)
	article.PublishedAt = publishedAt
	return nil
}

func (s *ArticleService) invalidatePublic(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, PublicArticlesPattern); err != nil {
		s.logger.Warn("failed to invalidate public article cache", zap.Error(err))
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
