package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		assert.Equal(t, seen, FromContext(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderKey, header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareKeepsCallerID(t *testing.T) {
	rec, seen := serve(t, "abc-123")
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderKey))
}

func TestMiddlewareGeneratesID(t *testing.T) {
	for _, header := range []string{"", strings.Repeat("x", maxLength+1), "abc def", "id\x00"} {
		rec, seen := serve(t, header)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(HeaderKey))
	}
}

func TestFromContextWithoutID(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
	assert.Equal(t, "job-7", FromContext(WithID(context.Background(), "job-7")))
}
