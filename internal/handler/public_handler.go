package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/service"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

type publicService interface {
	ListArticles(ctx context.Context, query service.PublicArticleQuery) (*dto.ArticlePage, error)
	ArticleBySlug(ctx context.Context, slug string) (*models.Article, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Settings(ctx context.Context) (map[string]string, error)
}

// PublicHandler serves the unauthenticated reader endpoints.
type PublicHandler struct {
	service publicService
}

// NewPublicHandler constructs the handler.
func NewPublicHandler(svc publicService) *PublicHandler {
	return &PublicHandler{service: svc}
}

// Articles godoc
// @Summary Published articles
// @Tags Public
// @Produce json
// @Param language query string false "Language code"
// @Param category query string false "Category key"
// @Param search query string false "Matches title and summary"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /articles [get]
func (h *PublicHandler) Articles(c *gin.Context) {
	page, err := parsePageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ListArticles(c.Request.Context(), service.PublicArticleQuery{
		Language:    c.Query("language"),
		Category:    c.Query("category"),
		Search:      c.Query("search"),
		PageRequest: page,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, result.Items, result.Pagination)
}

// Article godoc
// @Summary Published article by slug
// @Tags Public
// @Produce json
// @Param slug path string true "Article slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /articles/{slug} [get]
func (h *PublicHandler) Article(c *gin.Context) {
	article, err := h.service.ArticleBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, article)
}

// Categories godoc
// @Summary Categories
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *PublicHandler) Categories(c *gin.Context) {
	items, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Settings godoc
// @Summary Public site settings
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/public [get]
func (h *PublicHandler) Settings(c *gin.Context) {
	settings, err := h.service.Settings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}
