package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/jobs"
)

// FeedJobType identifies feed fetch jobs on the queue.
const FeedJobType = "feed.fetch"

const (
	feedSummaryLength   = 300
	defaultFeedMaxItems = 50
)

// Fetcher downloads and parses a feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// RSSFetcher fetches RSS and Atom feeds over HTTP.
type RSSFetcher struct {
	parser *gofeed.Parser
}

// NewRSSFetcher builds a fetcher whose requests give up after timeout.
func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "newsroom-api/1.0"
	if timeout > 0 {
		parser.Client = &http.Client{Timeout: timeout}
	}
	return &RSSFetcher{parser: parser}
}

// Fetch implements Fetcher.
func (f *RSSFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	return feed, nil
}

type feedSourceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Source, error)
	ListActiveByType(ctx context.Context, sourceType models.SourceType) ([]models.Source, error)
	MarkFetched(ctx context.Context, id string, at time.Time, fetchErr *string) error
}

type feedArticleRepository interface {
	InsertIfAbsent(ctx context.Context, article *models.Article) (bool, error)
}

type feedSettings interface {
	Bool(ctx context.Context, key string) bool
	Int(ctx context.Context, key string) int
}

type feedQueue interface {
	TryEnqueue(job jobs.Job) error
}

// FeedOptions tunes ingestion.
type FeedOptions struct {
	MaxItemAge time.Duration
	Clock      func() time.Time
}

// FeedService ingests articles from RSS sources.
type FeedService struct {
	sources  feedSourceRepository
	articles feedArticleRepository
	fetcher  Fetcher
	settings feedSettings
	cache    *CacheService
	metrics  *MetricsService
	queue    feedQueue
	logger   *zap.Logger
	opts     FeedOptions
}

// NewFeedService constructs the feed service.
func NewFeedService(sources feedSourceRepository, articles feedArticleRepository, fetcher Fetcher, settings feedSettings, cache *CacheService, metrics *MetricsService, logger *zap.Logger, opts FeedOptions) *FeedService {
	if fetcher == nil {
		fetcher = NewRSSFetcher(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &FeedService{
		sources:  sources,
		articles: articles,
		fetcher:  fetcher,
		settings: settings,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

// UseQueue attaches the queue used by Enqueue and FetchAll.
func (s *FeedService) UseQueue(q feedQueue) {
	s.queue = q
}

// FetchSource pulls one rss source and stores new items. Items already stored
// under the same url or slug are skipped.
func (s *FeedService) FetchSource(ctx context.Context, sourceID string) (*dto.FetchResult, error) {
	source, err := s.fetchable(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	feed, err := s.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		s.markFetched(ctx, source.ID, err)
		s.metrics.RecordFeedFetch(false, 0)
		s.logger.Warn("feed fetch failed", zap.String("source_id", source.ID), zap.String("url", source.URL), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrFeedFetch.Code, appErrors.ErrFeedFetch.Status, appErrors.ErrFeedFetch.Message)
	}

	now := s.opts.Clock().UTC()
	status := models.ArticleStatusDraft
	if s.autoPublish(ctx) {
		status = models.ArticleStatusPublished
	}
	maxItems := s.maxItems(ctx)

	result := &dto.FetchResult{SourceID: source.ID}
	for _, item := range feed.Items {
		if result.Fetched >= maxItems {
			break
		}
		article, ok := s.articleFromItem(item, source, status, now)
		if !ok {
			continue
		}
		result.Fetched++

		inserted, err := s.articles.InsertIfAbsent(ctx, article)
		if err != nil {
			s.markFetched(ctx, source.ID, err)
			s.metrics.RecordFeedFetch(false, result.Inserted)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store feed item")
		}
		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	s.markFetched(ctx, source.ID, nil)
	s.metrics.RecordFeedFetch(true, result.Inserted)
	if result.Inserted > 0 {
		if err := s.cache.Invalidate(ctx, PublicArticlesPattern); err != nil {
			s.logger.Warn("failed to invalidate public article cache", zap.Error(err))
		}
	}
	s.logger.Info("feed fetched",
		zap.String("source_id", source.ID),
		zap.Int("fetched", result.Fetched),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Enqueue schedules a background fetch for one source.
func (s *FeedService) Enqueue(ctx context.Context, sourceID string) error {
	if _, err := s.fetchable(ctx, sourceID); err != nil {
		return err
	}
	return s.enqueue(sourceID)
}

// FetchAll enqueues every active rss source and returns how many were queued.
func (s *FeedService) FetchAll(ctx context.Context) (int, error) {
	sources, err := s.sources.ListActiveByType(ctx, models.SourceTypeRSS)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feed sources")
	}
	queued := 0
	for _, source := range sources {
		if err := s.enqueue(source.ID); err != nil {
			s.logger.Sugar().Warnw("failed to queue feed fetch", "source_id", source.ID, "error", err)
			continue
		}
		queued++
	}
	return queued, nil
}

// HandleJob is the queue handler for FeedJobType jobs.
func (s *FeedService) HandleJob(ctx context.Context, job jobs.Job) error {
	sourceID, ok := job.Payload.(string)
	if !ok || sourceID == "" {
		s.logger.Error("invalid feed job payload", zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.FetchSource(ctx, sourceID)
	if err == nil {
		return nil
	}
	// Sources that vanished or were disabled after queueing are not retried.
	if errors.Is(err, appErrors.ErrNotFound) || errors.Is(err, appErrors.ErrValidation) {
		s.logger.Info("dropping feed job", zap.String("source_id", sourceID), zap.Error(err))
		return nil
	}
	return err
}

func (s *FeedService) enqueue(sourceID string) error {
	if s.queue == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "feed queue is not running")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: FeedJobType, Payload: sourceID}
	if err := s.queue.TryEnqueue(job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			return appErrors.Clone(appErrors.ErrUnavailable, "feed queue is full")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "feed queue is not running")
	}
	return nil
}

func (s *FeedService) fetchable(ctx context.Context, sourceID string) (*models.Source, error) {
	source, err := s.sources.FindByID(ctx, sourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "source not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source")
	}
	if source.Type != models.SourceTypeRSS {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only rss sources can be fetched")
	}
	if !source.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source is inactive")
	}
	return source, nil
}

func (s *FeedService) articleFromItem(item *gofeed.Item, source *models.Source, status models.ArticleStatus, now time.Time) (*models.Article, bool) {
	if item == nil {
		return nil, false
	}
	link := strings.TrimSpace(item.Link)
	title := strings.TrimSpace(html.UnescapeString(item.Title))
	if link == "" || title == "" {
		return nil, false
	}

	published := now
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}
	if s.opts.MaxItemAge > 0 && published.Before(now.Add(-s.opts.MaxItemAge)) {
		return nil, false
	}

	desc := item.Description
	if desc == "" {
		desc = item.Content
	}
	summary := truncate(html.UnescapeString(stripHTML(desc)), feedSummaryLength)

	sourceID := source.ID
	article := &models.Article{
		Title:    title,
		Slug:     feedSlug(title, link),
		Summary:  summary,
		Content:  item.Content,
		URL:      link,
		Author:   itemAuthor(item),
		SourceID: &sourceID,
		Category: source.Category,
		Language: source.Language,
		Status:   status,
		Tags:     normalizeTags(item.Categories),
	}
	if item.Image != nil {
		article.ImageURL = item.Image.URL
	}
	if status == models.ArticleStatusPublished {
		article.PublishedAt = &published
	}
	return article, true
}

func (s *FeedService) autoPublish(ctx context.Context) bool {
	if s.settings == nil {
		return false
	}
	return s.settings.Bool(ctx, SettingAutoPublishFeeds)
}

func (s *FeedService) maxItems(ctx context.Context) int {
	if s.settings == nil {
		return defaultFeedMaxItems
	}
	if n := s.settings.Int(ctx, SettingFeedMaxItems); n > 0 {
		return n
	}
	return defaultFeedMaxItems
}

func (s *FeedService) markFetched(ctx context.Context, id string, fetchErr error) {
	var msg *string
	if fetchErr != nil {
		text := truncate(fetchErr.Error(), 500)
		msg = &text
	}
	if err := s.sources.MarkFetched(ctx, id, s.opts.Clock().UTC(), msg); err != nil {
		s.logger.Warn("failed to record fetch outcome", zap.String("source_id", id), zap.Error(err))
	}
}

func itemAuthor(item *gofeed.Item) string {
	for _, person := range item.Authors {
		if person != nil && person.Name != "" {
			return person.Name
		}
	}
	return ""
}
