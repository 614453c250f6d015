package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated principal.
const ContextUserKey = "currentUser"

// TokenValidator resolves an access token to its principal.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.Principal, error)
}

// SessionAuth protects routes by requiring a live session. The token is read from the
// Authorization header and falls back to the cookie named cookieName.
func SessionAuth(validator TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractToken(c, cookieName)
		if err != nil {
			response.Abort(c, err)
			return
		}
		if token == "" {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		principal, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, principal)
		c.Next()
	}
}

// ExtractToken returns the bearer token of the request, or the session cookie when no
// Authorization header is sent. A malformed header is an error.
func ExtractToken(c *gin.Context, cookieName string) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookieName == "" {
		return "", nil
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie, nil
	}
	return "", nil
}

// PrincipalFromContext returns the principal stored by SessionAuth.
func PrincipalFromContext(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
