package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

type categoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error)
	Update(ctx context.Context, key string, req dto.UpdateCategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, key string) error
}

// CategoryHandler exposes category endpoints.
type CategoryHandler struct {
	service categoryService
}

// NewCategoryHandler constructs the handler.
func NewCategoryHandler(svc categoryService) *CategoryHandler {
	return &CategoryHandler{service: svc}
}

// List godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Create godoc
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid category payload"))
		return
	}
	category, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Category key"
// @Param payload body dto.UpdateCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/categories/{key} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid category payload"))
		return
	}
	category, err := h.service.Update(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category)
}

// Delete godoc
// @Summary Delete category
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param key path string true "Category key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/categories/{key} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "category deleted")
}
