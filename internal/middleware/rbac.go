package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

// RequireRoles admits only the listed roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			abort(c, appErrors.Clone(appErrors.ErrForbidden, "admin role required"))
			return
		}
		c.Next()
	}
}
