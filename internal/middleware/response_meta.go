package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// CacheHeader reports whether a timeline view came from cache.
const CacheHeader = "X-Cache"

// ResponseMeta collects per-request details echoed in the envelope meta.
type ResponseMeta struct {
	started time.Time
	cache   string
	fields  map[string]interface{}
}

// WithResponseMeta attaches a ResponseMeta to every request.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &ResponseMeta{started: time.Now(), fields: map[string]interface{}{}})
		c.Next()
	}
}

// MarkCache records the cache outcome of a derived view on both the header
// and the envelope meta.
func MarkCache(c *gin.Context, hit bool) {
	outcome := "MISS"
	if hit {
		outcome = "HIT"
	}
	c.Header(CacheHeader, outcome)
	if meta := lookupMeta(c); meta != nil {
		meta.cache = outcome
	}
}

// AddMeta sets an arbitrary meta field on the current response.
func AddMeta(c *gin.Context, key string, value interface{}) {
	if meta := lookupMeta(c); meta != nil {
		meta.fields[key] = value
	}
}

// Meta renders the meta map for the response being written. It returns nil
// when the request did not pass through WithResponseMeta.
func Meta(c *gin.Context) map[string]interface{} {
	meta := lookupMeta(c)
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta.fields)+2)
	for k, v := range meta.fields {
		out[k] = v
	}
	if meta.cache != "" {
		out["cache"] = meta.cache
	}
	out["processing_time_ms"] = time.Since(meta.started).Milliseconds()
	return out
}

func lookupMeta(c *gin.Context) *ResponseMeta {
	if c == nil {
		return nil
	}
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, _ := value.(*ResponseMeta)
	return meta
}
