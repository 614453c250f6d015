package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"

	maxExportRows = 5000
)

type articleLister interface {
	List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error)
}

type sourceLister interface {
	List(ctx context.Context, filter models.SourceFilter) ([]models.Source, int, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered export ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders article and source listings as downloadable documents.
type ExportService struct {
	articles  articleLister
	sources   sourceLister
	renderers map[string]tableRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(articles articleLister, sources sourceLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		articles: articles,
		sources:  sources,
		renderers: map[string]tableRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Articles exports every article matching filter. Pagination in filter is ignored.
func (s *ExportService) Articles(ctx context.Context, filter models.ArticleFilter, format string) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for page := 1; len(rows) < maxExportRows; page++ {
		filter.PageRequest = models.PageRequest{Page: page, Limit: models.MaxPageLimit}
		items, total, err := s.articles.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list articles")
		}
		for _, a := range items {
			rows = append(rows, []string{a.Title, string(a.Status), a.Language, a.Category, formatTime(a.PublishedAt), a.URL})
		}
		if len(items) == 0 || page*models.MaxPageLimit >= total {
			break
		}
	}

	table := export.Table{
		Title: "Articles",
		Columns: []export.Column{
			{Header: "title", Weight: 4}, {Header: "status"}, {Header: "language", Weight: 0.8},
			{Header: "category"}, {Header: "published_at", Weight: 1.6}, {Header: "url", Weight: 3},
		},
		Rows: capRows(rows),
	}
	return s.render(renderer, "articles", table)
}

// Sources exports every source matching filter. Pagination in filter is ignored.
func (s *ExportService) Sources(ctx context.Context, filter models.SourceFilter, format string) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for page := 1; len(rows) < maxExportRows; page++ {
		filter.PageRequest = models.PageRequest{Page: page, Limit: models.MaxPageLimit}
		items, total, err := s.sources.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sources")
		}
		for _, src := range items {
			lastError := ""
			if src.LastError != nil {
				lastError = *src.LastError
			}
			rows = append(rows, []string{src.Name, src.URL, string(src.Type), src.Language, fmt.Sprintf("%t", src.IsActive), formatTime(src.LastFetchedAt), lastError})
		}
		if len(items) == 0 || page*models.MaxPageLimit >= total {
			break
		}
	}

	table := export.Table{
		Title: "Sources",
		Columns: []export.Column{
			{Header: "name", Weight: 2}, {Header: "url", Weight: 3}, {Header: "type", Weight: 0.6},
			{Header: "language", Weight: 0.8}, {Header: "active", Weight: 0.6}, {Header: "last_fetched_at", Weight: 1.6}, {Header: "last_error", Weight: 2},
		},
		Rows: capRows(rows),
	}
	return s.render(renderer, "sources", table)
}

func (s *ExportService) renderer(format string) (tableRenderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return renderer, nil
}

func (s *ExportService) render(renderer tableRenderer, name string, table export.Table) (*ExportFile, error) {
	body, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("export rendered", zap.String("dataset", name), zap.String("format", renderer.Extension()), zap.Int("rows", len(table.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", name, s.now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
		Rows:        len(table.Rows),
	}, nil
}

func capRows(rows [][]string) [][]string {
	if len(rows) > maxExportRows {
		return rows[:maxExportRows]
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
