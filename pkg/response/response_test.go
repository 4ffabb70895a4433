package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/middleware/requestid"
)

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", handler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.HeaderKey, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env Envelope
	if w.Header().Get("Content-Type") != "text/csv" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestErrorEchoesRequestID(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrConflict, "step report is not pending"))
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "req-1", env.Meta["request_id"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorHidesUnknownFailures(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) { Error(c, errors.New("pq: connection refused")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.NotContains(t, env.Error.Message, "pq:")
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) {
		JSON(c, http.StatusOK, map[string]int{"samples": 2}, nil, map[string]interface{}{})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.Meta)
	assert.NotNil(t, env.Data)
}

func TestFileSetsDisposition(t *testing.T) {
	w, _ := serve(t, func(c *gin.Context) { File(c, "text/csv", "timeline.csv", []byte("unit\n")) })
	assert.Equal(t, `attachment; filename="timeline.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "unit\n", w.Body.String())
}
