package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	token  string
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != v.token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func newAdminRouter(role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	validator := validatorStub{token: "good", claims: &models.JWTClaims{UserID: "ops", Role: role}}
	r.GET("/admin", JWT(validator), RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAndRoles(t *testing.T) {
	cases := []struct {
		name   string
		role   models.UserRole
		header string
		status int
		code   string
	}{
		{name: "missing header", role: models.RoleAdmin, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "malformed", role: models.RoleAdmin, header: "Token good", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "bad token", role: models.RoleAdmin, header: "Bearer bad", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "wrong role", role: models.UserRole("VIEWER"), header: "Bearer good", status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "admin", role: models.RoleAdmin, header: "Bearer good", status: http.StatusNoContent},
		{name: "superadmin", role: models.RoleSuperAdmin, header: "bearer good", status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			newAdminRouter(tc.role).ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				var body struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tc.code, body.Error.Code)
			}
		})
	}
}

func TestResponseMetaRecordsCacheOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var meta map[string]interface{}
	r.Use(WithResponseMeta())
	r.GET("/t", func(c *gin.Context) {
		MarkCache(c, true)
		AddMeta(c, "units", 2)
		meta = Meta(c)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))

	require.NotNil(t, meta)
	assert.Equal(t, "HIT", meta["cache"])
	assert.Equal(t, 2, meta["units"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
}

func TestMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	MarkCache(c, false)
	assert.Nil(t, Meta(c))
	assert.Equal(t, "MISS", c.Writer.Header().Get(CacheHeader))
}

type routeRecorder struct {
	routes   []string
	statuses []int
}

func (r *routeRecorder) ObserveHTTPRequest(_ string, route string, status int, _ time.Duration) {
	r.routes = append(r.routes, route)
	r.statuses = append(r.statuses, status)
}

func TestMetricsRecordsRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &routeRecorder{}
	r := gin.New()
	r.Use(Metrics(rec, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/steps/:id", func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, target := range []string{"/health", "/steps/42", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, []string{"/steps/:id", unmatchedRoute}, rec.routes)
	assert.Equal(t, []int{http.StatusCreated, http.StatusNotFound}, rec.statuses)
}
