package requestid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderKey carries the request id in both directions.
const HeaderKey = "X-Request-ID"

const (
	ginKey    = "request_id"
	maxLength = 128
)

type ctxKey struct{}

// Middleware tags every request with an id, reusing a well-formed caller id.
// The id is stored on the gin context and on the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderKey)
		if !acceptable(id) {
			id = uuid.NewString()
		}
		c.Set(ginKey, id)
		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))
		c.Writer.Header().Set(HeaderKey, id)
		c.Next()
	}
}

// Value returns the request id stored on the gin context.
func Value(c *gin.Context) string {
	return c.GetString(ginKey)
}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id carried by ctx, if any.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
