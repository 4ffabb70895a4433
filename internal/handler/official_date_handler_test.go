package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
)

type officialDateMock struct {
	stepID int64
	actor  string
}

func (m *officialDateMock) Record(_ context.Context, stepID int64, req dto.RecordOfficialDateRequest, actorID string) (*dto.OfficialDateResponse, error) {
	m.stepID, m.actor = stepID, actorID
	return &dto.OfficialDateResponse{StepID: stepID, Date: req.Date, Weight: 1}, nil
}

func TestOfficialDateHandlerRecord(t *testing.T) {
	svc := &officialDateMock{}
	h := NewOfficialDateHandler(svc)

	c, w := newReportContext(http.MethodPost, "/admin/steps/1001/official-dates", []byte(`{"date":"2024-04-02"}`))
	c.Params = gin.Params{{Key: "id", Value: "1001"}}
	h.Record(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(1001), svc.stepID)
	assert.Equal(t, "admin-1", svc.actor)

	c, w = newReportContext(http.MethodPost, "/admin/steps/abc/official-dates", []byte(`{"date":"2024-04-02"}`))
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Record(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
