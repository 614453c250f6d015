package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type publicArticleRepository interface {
	List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error)
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Article, error)
}

type publicCategoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

type publicSettingsReader interface {
	Public(ctx context.Context) (map[string]string, error)
	Int(ctx context.Context, key string) int
}

// PublicArticleQuery holds the filters readers may apply.
type PublicArticleQuery struct {
	Language string
	Category string
	Search   string
	models.PageRequest
}

// PublicService serves the read-only reader side, cached when caching is enabled.
type PublicService struct {
	articles   publicArticleRepository
	categories publicCategoryLister
	settings   publicSettingsReader
	cache      *CacheService
	ttl        time.Duration
	logger     *zap.Logger
}

// NewPublicService constructs the public service.
func NewPublicService(articles publicArticleRepository, categories publicCategoryLister, settings publicSettingsReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *PublicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicService{
		articles:   articles,
		categories: categories,
		settings:   settings,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}
}

// ListArticles returns published articles only.
func (s *PublicService) ListArticles(ctx context.Context, query PublicArticleQuery) (*dto.ArticlePage, error) {
	if query.Limit <= 0 && s.settings != nil {
		query.Limit = s.settings.Int(ctx, SettingArticlesPerPage)
	}
	query.PageRequest = query.PageRequest.Normalize()
	query.Language = strings.ToLower(strings.TrimSpace(query.Language))
	query.Search = strings.TrimSpace(query.Search)

	key := publicListKey(query)
	var cached dto.ArticlePage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	status := models.ArticleStatusPublished
	articles, total, err := s.articles.List(ctx, models.ArticleFilter{
		Status:      &status,
		Language:    query.Language,
		Category:    query.Category,
		Search:      query.Search,
		PageRequest: query.PageRequest,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list articles")
	}
	if articles == nil {
		articles = []models.Article{}
	}
	page := &dto.ArticlePage{Items: articles, Pagination: models.NewPagination(query.PageRequest, total)}
	_ = s.cache.Set(ctx, key, page, s.ttl)
	return page, nil
}

// ArticleBySlug returns a published article. Drafts and archived items are reported missing.
func (s *PublicService) ArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
	}
	key := PublicArticlesSlugPrefix + slug
	var cached models.Article
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	article, err := s.articles.FindPublishedBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get article")
	}
	_ = s.cache.Set(ctx, key, article, s.ttl)
	return article, nil
}

// Categories returns the category listing.
func (s *PublicService) Categories(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if hit, _ := s.cache.Get(ctx, PublicCategoriesKey, &cached); hit {
		return cached, nil
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, PublicCategoriesKey, categories, s.ttl)
	return categories, nil
}

// Settings returns the settings marked public.
func (s *PublicService) Settings(ctx context.Context) (map[string]string, error) {
	if s.settings == nil {
		return map[string]string{}, nil
	}
	return s.settings.Public(ctx)
}

// Cache key prefixes under PublicArticlesPattern.
const (
	PublicArticlesListPrefix = "public:articles:list:"
	PublicArticlesSlugPrefix = "public:articles:slug:"
)

func publicListKey(q PublicArticleQuery) string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%d", q.Language, q.Category, strings.ToLower(q.Search), q.Page, q.Limit)
	sum := sha256.Sum256([]byte(raw))
	return PublicArticlesListPrefix + hex.EncodeToString(sum[:8])
}
