package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

type sourceService interface {
	List(ctx context.Context, filter models.SourceFilter) ([]models.Source, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Source, error)
	Create(ctx context.Context, req dto.CreateSourceRequest) (*models.Source, error)
	Update(ctx context.Context, id string, req dto.UpdateSourceRequest) (*models.Source, error)
	Delete(ctx context.Context, id string) error
	BulkImport(ctx context.Context, req dto.BulkSourceRequest) (*dto.BulkSourceResult, error)
}

type feedEnqueuer interface {
	Enqueue(ctx context.Context, sourceID string) error
}

// SourceHandler exposes source management endpoints.
type SourceHandler struct {
	service sourceService
	feeds   feedEnqueuer
}

// NewSourceHandler constructs the handler. feeds may be nil when ingestion is disabled.
func NewSourceHandler(svc sourceService, feeds feedEnqueuer) *SourceHandler {
	return &SourceHandler{service: svc, feeds: feeds}
}

// List godoc
// @Summary List sources
// @Tags Sources
// @Produce json
// @Security BearerAuth
// @Param type query string false "rss or api"
// @Param language query string false "Language code"
// @Param active query bool false "Active flag"
// @Param search query string false "Matches name and url"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/sources [get]
func (h *SourceHandler) List(c *gin.Context) {
	filter, err := parseSourceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

func parseSourceFilter(c *gin.Context) (models.SourceFilter, error) {
	page, err := parsePageRequest(c)
	if err != nil {
		return models.SourceFilter{}, err
	}
	active, err := parseOptionalBool(c, "active")
	if err != nil {
		return models.SourceFilter{}, err
	}
	filter := models.SourceFilter{
		Language:    strings.ToLower(c.Query("language")),
		Active:      active,
		Search:      strings.TrimSpace(c.Query("search")),
		PageRequest: page,
	}
	if raw := c.Query("type"); raw != "" {
		sourceType := models.SourceType(raw)
		if sourceType != models.SourceTypeRSS && sourceType != models.SourceTypeAPI {
			return models.SourceFilter{}, appErrors.Clone(appErrors.ErrValidation, "unknown source type")
		}
		filter.Type = &sourceType
	}
	return filter, nil
}

// Get godoc
// @Summary Get source
// @Tags Sources
// @Produce json
// @Security BearerAuth
// @Param id path string true "Source id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/sources/{id} [get]
func (h *SourceHandler) Get(c *gin.Context) {
	source, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, source)
}

// Create godoc
// @Summary Register source
// @Tags Sources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateSourceRequest true "Source payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/sources [post]
func (h *SourceHandler) Create(c *gin.Context) {
	var req dto.CreateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid source payload"))
		return
	}
	source, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, source)
}

// Update godoc
// @Summary Update source
// @Tags Sources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Source id"
// @Param payload body dto.UpdateSourceRequest true "Source payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/sources/{id} [put]
func (h *SourceHandler) Update(c *gin.Context) {
	var req dto.UpdateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid source payload"))
		return
	}
	source, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, source)
}

// Delete godoc
// @Summary Delete source
// @Tags Sources
// @Produce json
// @Security BearerAuth
// @Param id path string true "Source id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/sources/{id} [delete]
func (h *SourceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "source deleted")
}

// Bulk godoc
// @Summary Bulk load sources
// @Description Urls repeated in the payload or already registered are skipped and reported.
// @Tags Sources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkSourceRequest true "Sources"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/sources/bulk [post]
func (h *SourceHandler) Bulk(c *gin.Context) {
	var req dto.BulkSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid bulk source payload"))
		return
	}
	result, err := h.service.BulkImport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Fetch godoc
// @Summary Queue a feed fetch
// @Tags Sources
// @Produce json
// @Security BearerAuth
// @Param id path string true "Source id"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /admin/sources/{id}/fetch [post]
func (h *SourceHandler) Fetch(c *gin.Context) {
	if h.feeds == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "feed ingestion is disabled"))
		return
	}
	if err := h.feeds.Enqueue(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusAccepted, "fetch queued")
}
