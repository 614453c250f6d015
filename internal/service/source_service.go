package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/repository"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type sourceRepository interface {
	List(ctx context.Context, filter models.SourceFilter) ([]models.Source, int, error)
	FindByID(ctx context.Context, id string) (*models.Source, error)
	Create(ctx context.Context, source *models.Source) error
	InsertIfAbsent(ctx context.Context, source *models.Source) (bool, error)
	Update(ctx context.Context, source *models.Source) error
	Delete(ctx context.Context, id string) error
}

// Reasons reported for bulk entries that were not inserted.
const (
	SkipDuplicateInPayload = "duplicate url in payload"
	SkipAlreadyExists      = "url already registered"
)

// SourceService manages the publishers the platform aggregates from.
type SourceService struct {
	repo      sourceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSourceService constructs the source service.
func NewSourceService(repo sourceRepository, validate *validator.Validate, logger *zap.Logger) *SourceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceService{repo: repo, validator: validate, logger: logger}
}

// List returns sources and pagination metadata.
func (s *SourceService) List(ctx context.Context, filter models.SourceFilter) ([]models.Source, *models.Pagination, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	sources, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sources")
	}
	if sources == nil {
		sources = []models.Source{}
	}
	return sources, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one source.
func (s *SourceService) Get(ctx context.Context, id string) (*models.Source, error) {
	source, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "source not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source")
	}
	return source, nil
}

// Create registers a source. A url that is already registered is a conflict.
func (s *SourceService) Create(ctx context.Context, req dto.CreateSourceRequest) (*models.Source, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid source payload")
	}
	source := newSource(req)
	if err := s.repo.Create(ctx, source); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "source url already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create source")
	}
	return source, nil
}

// Update replaces the editable fields of a source.
func (s *SourceService) Update(ctx context.Context, id string, req dto.UpdateSourceRequest) (*models.Source, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid source payload")
	}
	source, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := newSource(req)
	source.Name = next.Name
	source.URL = next.URL
	source.Type = next.Type
	source.Language = next.Language
	source.Category = next.Category
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, source); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "source url already registered")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "source not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update source")
	}
	return source, nil
}

// Delete removes a source.
func (s *SourceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "source not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete source")
	}
	return nil
}

// BulkImport loads many sources at once. Entries whose url repeats inside the payload or is
// already stored are skipped and reported; everything else is inserted.
func (s *SourceService) BulkImport(ctx context.Context, req dto.BulkSourceRequest) (*dto.BulkSourceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk source payload")
	}

	result := &dto.BulkSourceResult{Created: []string{}, Skipped: []dto.SkippedSource{}}
	seen := make(map[string]struct{}, len(req.Sources))
	for _, item := range req.Sources {
		source := newSource(item)
		// Same rule as the unique index on sources.url: exact match after trimming.
		if _, dup := seen[source.URL]; dup {
			result.Skipped = append(result.Skipped, dto.SkippedSource{URL: source.URL, Reason: SkipDuplicateInPayload})
			continue
		}
		seen[source.URL] = struct{}{}

		inserted, err := s.repo.InsertIfAbsent(ctx, source)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import sources")
		}
		if !inserted {
			result.Skipped = append(result.Skipped, dto.SkippedSource{URL: source.URL, Reason: SkipAlreadyExists})
			continue
		}
		result.Created = append(result.Created, source.ID)
	}

	s.logger.Info("sources imported", zap.Int("created", len(result.Created)), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func newSource(req dto.CreateSourceRequest) *models.Source {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &models.Source{
		Name:     strings.TrimSpace(req.Name),
		URL:      strings.TrimSpace(req.URL),
		Type:     models.SourceType(req.Type),
		Language: strings.ToLower(req.Language),
		Category: req.Category,
		IsActive: active,
	}
}
