package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-timeline-api/internal/middleware"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

func actorID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return v, nil
}
