package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/middleware"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	"github.com/noah-isme/recruit-timeline-api/internal/service"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

type timelineServiceMock struct {
	cached  bool
	company string
	keyword string
}

func (m *timelineServiceMock) Timeline(_ context.Context, company string) (*dto.TimelineResponse, error) {
	m.company = company
	if company == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "company is required")
	}
	return &dto.TimelineResponse{Company: company, Units: []models.UnitTimeline{}, Cached: m.cached}, nil
}

func (m *timelineServiceMock) KeywordLeadTime(_ context.Context, company, keyword string) (*dto.LeadTimeResponse, error) {
	m.company, m.keyword = company, keyword
	median := 7
	return &dto.LeadTimeResponse{Company: company, Keyword: keyword, LeadTime: models.LeadTime{Median: &median, Samples: 4}}, nil
}

type exporterMock struct{ format string }

func (m *exporterMock) ExportTimeline(_ context.Context, company, format string) (*service.ExportResult, error) {
	m.format = format
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportResult{Filename: "timeline_acme.csv", ContentType: "text/csv", Payload: []byte("unit\n")}, nil
}

func serveTimeline(h *TimelineHandler, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/timelines", h.Timeline)
	r.GET("/timelines/lead-time", h.LeadTime)
	r.GET("/timelines/export", h.Export)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestTimelineHandlerCacheFlag(t *testing.T) {
	svc := &timelineServiceMock{cached: true}
	w := serveTimeline(NewTimelineHandler(svc, nil), "/timelines?company=Acme%20Corp")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme Corp", svc.company)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, "HIT", meta["cache"])

	svc.cached = false
	w = serveTimeline(NewTimelineHandler(svc, nil), "/timelines?company=Acme")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
}

func TestTimelineHandlerRequiresCompany(t *testing.T) {
	w := serveTimeline(NewTimelineHandler(&timelineServiceMock{}, nil), "/timelines")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimelineHandlerLeadTime(t *testing.T) {
	svc := &timelineServiceMock{}
	w := serveTimeline(NewTimelineHandler(svc, nil), "/timelines/lead-time?company=Acme&keyword=Final%20Interview")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Final Interview", svc.keyword)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(7), data["median"])
	assert.Nil(t, data["min"])
	assert.Equal(t, float64(4), data["samples"])
}

func TestTimelineHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	h := NewTimelineHandler(&timelineServiceMock{}, exporter)

	w := serveTimeline(h, "/timelines/export?company=Acme&format=csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timeline_acme.csv")
	assert.Equal(t, "unit\n", w.Body.String())

	w = serveTimeline(h, "/timelines/export?company=Acme&format=xlsx")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
