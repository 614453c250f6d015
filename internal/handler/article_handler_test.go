package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type articleServiceMock struct {
	lastFilter models.ArticleFilter
	statusReq  dto.UpdateArticleStatusRequest
	created    []dto.CreateArticleRequest
}

func (m *articleServiceMock) List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, *models.Pagination, error) {
	m.lastFilter = filter
	items := []models.Article{{ID: "a1", Title: "One", Status: models.ArticleStatusPublished}}
	return items, models.NewPagination(filter.PageRequest, len(items)), nil
}

func (m *articleServiceMock) Get(ctx context.Context, id string) (*models.Article, error) {
	if id != "a1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
	}
	return &models.Article{ID: "a1", Title: "One"}, nil
}

func (m *articleServiceMock) Create(ctx context.Context, req dto.CreateArticleRequest) (*models.Article, error) {
	m.created = append(m.created, req)
	return &models.Article{ID: "a2", Title: req.Title, Status: models.ArticleStatusDraft}, nil
}

func (m *articleServiceMock) Update(ctx context.Context, id string, req dto.UpdateArticleRequest) (*models.Article, error) {
	if id != "a1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
	}
	return &models.Article{ID: id, Title: req.Title}, nil
}

func (m *articleServiceMock) UpdateStatus(ctx context.Context, id string, req dto.UpdateArticleStatusRequest) (*models.Article, error) {
	m.statusReq = req
	return &models.Article{ID: id, Status: models.ArticleStatus(req.Status)}, nil
}

func (m *articleServiceMock) Delete(ctx context.Context, id string) error {
	if id != "a1" {
		return appErrors.Clone(appErrors.ErrNotFound, "article not found")
	}
	return nil
}

func newArticleRouter(svc *articleServiceMock) http.Handler {
	h := NewArticleHandler(svc)
	router := testRouter(testPrincipal())
	router.GET("/admin/articles", h.List)
	router.POST("/admin/articles", h.Create)
	router.GET("/admin/articles/:id", h.Get)
	router.PUT("/admin/articles/:id", h.Update)
	router.PATCH("/admin/articles/:id/status", h.UpdateStatus)
	router.DELETE("/admin/articles/:id", h.Delete)
	return router
}

func TestArticleHandlerList(t *testing.T) {
	svc := &articleServiceMock{}
	router := newArticleRouter(svc)

	w := performRequest(router, http.MethodGet, "/admin/articles?status=published&language=ID&category=tech&sourceId=s1&page=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.ArticleStatusPublished, *svc.lastFilter.Status)
	assert.Equal(t, "id", svc.lastFilter.Language)
	assert.Equal(t, "tech", svc.lastFilter.Category)
	assert.Equal(t, "s1", svc.lastFilter.SourceID)

	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Items), `"id":"a1"`)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.Page)
	assert.Equal(t, models.DefaultPageLimit, env.Pagination.Limit)
}

func TestArticleHandlerListRejectsBadInput(t *testing.T) {
	router := newArticleRouter(&articleServiceMock{})
	for _, path := range []string{"/admin/articles?status=deleted", "/admin/articles?page=-1", "/admin/articles?limit=ten"} {
		w := performRequest(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
	}
}

func TestArticleHandlerCRUD(t *testing.T) {
	svc := &articleServiceMock{}
	router := newArticleRouter(svc)

	w := performRequest(router, http.MethodPost, "/admin/articles", map[string]string{"title": "Breaking", "url": "https://example.com/b"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, "Breaking", svc.created[0].Title)

	w = performRequest(router, http.MethodPost, "/admin/articles", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodGet, "/admin/articles/a1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodGet, "/admin/articles/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, decodeEnvelope(t, w).Error.Code)

	w = performRequest(router, http.MethodPut, "/admin/articles/a1", map[string]string{"title": "Updated"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodPatch, "/admin/articles/a1/status", map[string]string{"status": "archived"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "archived", svc.statusReq.Status)

	w = performRequest(router, http.MethodDelete, "/admin/articles/a1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "article deleted", decodeEnvelope(t, w).Message)

	w = performRequest(router, http.MethodDelete, "/admin/articles/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
