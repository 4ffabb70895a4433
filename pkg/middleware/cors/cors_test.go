package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(allowed []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(allowed))
	r.GET("/timelines", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(method, "/timelines", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOpenPolicyAllowsAnyOriginWithoutCredentials(t *testing.T) {
	w := serve(nil, http.MethodGet, "https://board.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestListedOriginGetsCredentials(t *testing.T) {
	w := serve([]string{"https://Admin.example/"}, http.MethodGet, "https://admin.example")
	assert.Equal(t, "https://admin.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Cache")
}

func TestUnlistedOriginIsNotEchoed(t *testing.T) {
	w := serve([]string{"https://admin.example"}, http.MethodGet, "https://evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	w := serve(nil, http.MethodOptions, "https://board.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, allowMethods, w.Header().Get("Access-Control-Allow-Methods"))
}
