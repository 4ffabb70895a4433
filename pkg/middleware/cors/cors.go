package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowMethods  = "GET, POST, PUT, OPTIONS"
	allowHeaders  = "Authorization, Content-Type, X-Request-ID"
	exposeHeaders = "X-Request-ID, X-Cache, Content-Disposition"
	maxAge        = "600"
)

// Policy decides which browser origins may call the API.
type Policy struct {
	origins map[string]struct{}
}

// NewPolicy builds a policy from configured origins. An empty list opens the
// public endpoints to any origin without credentials.
func NewPolicy(allowedOrigins []string) Policy {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = normalize(origin); origin != "" {
			origins[origin] = struct{}{}
		}
	}
	return Policy{origins: origins}
}

// Open reports whether no origin list was configured.
func (p Policy) Open() bool { return len(p.origins) == 0 }

// Allows reports whether origin is explicitly listed.
func (p Policy) Allows(origin string) bool {
	_, ok := p.origins[normalize(origin)]
	return ok
}

// New returns the CORS middleware for the configured origins. Credentials
// are only allowed for explicitly listed origins.
func New(allowedOrigins []string) gin.HandlerFunc {
	return NewPolicy(allowedOrigins).Middleware()
}

// Middleware applies the policy to every request.
func (p Policy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && p.Allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case p.Open():
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Expose-Headers", exposeHeaders)

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
