package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/dto"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

type settingService interface {
	List(ctx context.Context) ([]dto.SettingItem, error)
	Get(ctx context.Context, key string) (*dto.SettingItem, error)
	Update(ctx context.Context, key, value string, actorID string) (*dto.SettingItem, error)
	BulkUpdate(ctx context.Context, req dto.BulkUpdateSettingsRequest, actorID string) ([]dto.SettingItem, error)
}

// SettingHandler exposes site setting endpoints.
type SettingHandler struct {
	service settingService
}

// NewSettingHandler builds a new handler.
func NewSettingHandler(service settingService) *SettingHandler {
	return &SettingHandler{service: service}
}

// List godoc
// @Summary List settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *SettingHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Get godoc
// @Summary Get setting by key
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Router /admin/settings/{key} [get]
func (h *SettingHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Update godoc
// @Summary Update setting
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Param payload body dto.UpdateSettingRequest true "Setting payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/settings/{key} [put]
func (h *SettingHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid setting payload"))
		return
	}
	if req.Key == "" {
		req.Key = c.Param("key")
	}
	if req.Key != c.Param("key") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "key mismatch between path and body"))
		return
	}
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	item, err := h.service.Update(c.Request.Context(), req.Key, req.Value, principal.User.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// BulkUpdate godoc
// @Summary Bulk update settings
// @Description Every item is validated before any is written.
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkUpdateSettingsRequest true "Bulk settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/settings [put]
func (h *SettingHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid bulk payload"))
		return
	}
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	items, err := h.service.BulkUpdate(c.Request.Context(), req, principal.User.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}
