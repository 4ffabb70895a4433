package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/response"
)

// ContextUserKey is the gin context key storing admin claims.
const ContextUserKey = "currentUser"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT admits only requests carrying a valid admin bearer token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, err)
			return
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Claims returns the admin claims set by JWT, or nil.
func Claims(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return token, nil
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
