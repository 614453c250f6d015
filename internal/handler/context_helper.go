package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/middleware"
	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

// principalOrAbort loads the authenticated admin, answering 401 when none is attached.
func principalOrAbort(c *gin.Context) (*models.Principal, bool) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return principal, true
}

// parsePageRequest reads page and limit. Absent values fall back to defaults; garbage is rejected.
func parsePageRequest(c *gin.Context) (models.PageRequest, error) {
	var page models.PageRequest
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		if n > models.MaxPage {
			return page, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("page must be at most %d", models.MaxPage))
		}
		page.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer")
		}
		page.Limit = n
	}
	return page, nil
}

func parseOptionalBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a boolean")
	}
	return &v, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
