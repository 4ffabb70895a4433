package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
	"github.com/noah-isme/recruit-timeline-api/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		JWT:       config.JWTConfig{Secret: "router-secret", Issuer: "recruit-timeline", Expiration: time.Hour},
		Reports:   config.ReportsConfig{Cooldown: 30 * time.Second, CooldownEvictFactor: 10, CooldownBackend: config.CooldownBackendRedis},
		Timeline:  config.TimelineConfig{CacheEnabled: true, CacheTTL: time.Minute},
	}
}

func newTestApp(t *testing.T) (*App, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rawDB.Close() })
	return Build(testConfig(), zap.NewNop(), sqlx.NewDb(rawDB, "postgres"), nil), mock
}

func TestRouterOpsEndpoints(t *testing.T) {
	a, mock := newTestApp(t)
	mock.ExpectPing()
	r := NewRouter(a)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouterGuardsAdminRoutes(t *testing.T) {
	a, _ := newTestApp(t)
	r := NewRouter(a)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/step-reports", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := a.Tokens.IssueToken("ops", models.RoleAdmin)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterPublicValidation(t *testing.T) {
	a, _ := newTestApp(t)
	r := NewRouter(a)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/timelines/lead-time?company=Acme", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuildFallsBackWithoutRedis(t *testing.T) {
	a, _ := newTestApp(t)
	assert.NotNil(t, a.Reports)
	assert.NotNil(t, a.Queue)
	assert.Zero(t, a.Queue.Pending())
}
