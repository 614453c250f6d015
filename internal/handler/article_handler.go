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

type articleService interface {
	List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Article, error)
	Create(ctx context.Context, req dto.CreateArticleRequest) (*models.Article, error)
	Update(ctx context.Context, id string, req dto.UpdateArticleRequest) (*models.Article, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateArticleStatusRequest) (*models.Article, error)
	Delete(ctx context.Context, id string) error
}

// ArticleHandler exposes the editorial article endpoints.
type ArticleHandler struct {
	service articleService
}

// NewArticleHandler constructs the handler.
func NewArticleHandler(svc articleService) *ArticleHandler {
	return &ArticleHandler{service: svc}
}

// List godoc
// @Summary List articles
// @Tags Articles
// @Produce json
// @Security BearerAuth
// @Param status query string false "draft, published or archived"
// @Param language query string false "Language code"
// @Param category query string false "Category key"
// @Param sourceId query string false "Source id"
// @Param search query string false "Matches title and summary"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/articles [get]
func (h *ArticleHandler) List(c *gin.Context) {
	filter, err := parseArticleFilter(c)
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

func parseArticleFilter(c *gin.Context) (models.ArticleFilter, error) {
	page, err := parsePageRequest(c)
	if err != nil {
		return models.ArticleFilter{}, err
	}
	filter := models.ArticleFilter{
		Language:    strings.ToLower(c.Query("language")),
		Category:    c.Query("category"),
		SourceID:    c.Query("sourceId"),
		Search:      strings.TrimSpace(c.Query("search")),
		PageRequest: page,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.ArticleStatus(raw)
		if !status.Valid() {
			return models.ArticleFilter{}, appErrors.Clone(appErrors.ErrValidation, "unknown article status")
		}
		filter.Status = &status
	}
	return filter, nil
}

// Get godoc
// @Summary Get article
// @Tags Articles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/articles/{id} [get]
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, article)
}

// Create godoc
// @Summary Create article
// @Tags Articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateArticleRequest true "Article payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/articles [post]
func (h *ArticleHandler) Create(c *gin.Context) {
	var req dto.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid article payload"))
		return
	}
	article, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, article)
}

// Update godoc
// @Summary Update article
// @Tags Articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article id"
// @Param payload body dto.UpdateArticleRequest true "Article payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/articles/{id} [put]
func (h *ArticleHandler) Update(c *gin.Context) {
	var req dto.UpdateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid article payload"))
		return
	}
	article, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, article)
}

// UpdateStatus godoc
// @Summary Change article status
// @Tags Articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article id"
// @Param payload body dto.UpdateArticleStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/articles/{id}/status [patch]
func (h *ArticleHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateArticleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid status payload"))
		return
	}
	article, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, article)
}

// Delete godoc
// @Summary Delete article
// @Tags Articles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/articles/{id} [delete]
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "article deleted")
}
