package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/newsroom-api/internal/middleware"
	"github.com/noah-isme/newsroom-api/internal/models"
)

type envelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Items      json.RawMessage    `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
	Message    string             `json:"message"`
	Meta       map[string]string  `json:"meta"`
	Error      *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func testRouter(principal *models.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if principal != nil {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, principal)
			c.Next()
		})
	}
	return router
}

func testPrincipal() *models.Principal {
	return &models.Principal{
		User:      models.AdminUser{ID: "admin-1", Username: "root", Role: models.RoleSuperAdmin, IsActive: true},
		SessionID: "session-1",
		Token:     "access-1",
	}
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
