package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

// RequireRoles allows the request through only when the principal holds one of roles.
// It must run after SessionAuth.
func RequireRoles(roles ...models.AdminRole) gin.HandlerFunc {
	allowed := make(map[models.AdminRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		principal := PrincipalFromContext(c)
		if principal == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[principal.User.Role]; !ok {
			response.Abort(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
