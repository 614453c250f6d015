package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/service"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

type exportService interface {
	Articles(ctx context.Context, filter models.ArticleFilter, format string) (*service.ExportFile, error)
	Sources(ctx context.Context, filter models.SourceFilter, format string) (*service.ExportFile, error)
}

// ExportHandler serves CSV and PDF downloads of admin listings.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Articles godoc
// @Summary Export articles
// @Description Accepts the article list filters. Pagination is ignored.
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "draft, published or archived"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/exports/articles [get]
func (h *ExportHandler) Articles(c *gin.Context) {
	filter, err := parseArticleFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Articles(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Sources godoc
// @Summary Export sources
// @Description Accepts the source list filters. Pagination is ignored.
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/exports/sources [get]
func (h *ExportHandler) Sources(c *gin.Context) {
	filter, err := parseSourceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Sources(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("X-Export-Rows", strconv.Itoa(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
