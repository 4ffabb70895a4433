package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

type timelineSourceStub struct {
	resp *dto.TimelineResponse
	err  error
}

func (s timelineSourceStub) Timeline(context.Context, string) (*dto.TimelineResponse, error) {
	return s.resp, s.err
}

func exportFixture() *dto.TimelineResponse {
	year := 2024
	diff := 10
	return &dto.TimelineResponse{
		Company: "Acme Corp",
		Units: []models.UnitTimeline{{
			UnitID:      10,
			Category:    "IT",
			ChannelID:   101,
			ChannelType: models.ChannelTypeYearly,
			Year:        &year,
			Steps: []models.TimelineEntry{
				{StepID: 1000, StepName: "Entry", Date: strPtr("2024-03-01")},
				{StepID: 1001, StepName: "Interview", Date: strPtr("2024-03-11"), DayDiff: &diff},
				{StepID: 1002, StepName: "Offer"},
			},
		}},
	}
}

func newExportServiceForTest(src timelineSourceStub) *ExportService {
	svc := NewExportService(src, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC) }
	return svc
}

func TestTimelineDatasetFlattensSteps(t *testing.T) {
	data := TimelineDataset(exportFixture())
	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"IT", "YEARLY", "2024", "Interview", "2024-03-11", "10"}, data.Rows[1])
	assert.Equal(t, []string{"IT", "YEARLY", "2024", "Offer", "", ""}, data.Rows[2])
	assert.Equal(t, "Acme Corp recruitment timeline", data.Title)
}

func TestExportTimelineCSV(t *testing.T) {
	svc := newExportServiceForTest(timelineSourceStub{resp: exportFixture()})
	result, err := svc.ExportTimeline(context.Background(), "Acme Corp", "")
	require.NoError(t, err)
	assert.Equal(t, "timeline_acme_corp_20240315_083000.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, string(result.Payload), "IT,YEARLY,2024,Entry,2024-03-01,\n")
}

func TestExportTimelinePDF(t *testing.T) {
	svc := newExportServiceForTest(timelineSourceStub{resp: exportFixture()})
	result, err := svc.ExportTimeline(context.Background(), "Acme Corp", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
}

func TestExportTimelineErrors(t *testing.T) {
	svc := newExportServiceForTest(timelineSourceStub{resp: exportFixture()})
	_, err := svc.ExportTimeline(context.Background(), "Acme Corp", "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	svc = newExportServiceForTest(timelineSourceStub{err: appErrors.Clone(appErrors.ErrValidation, "company is required")})
	_, err = svc.ExportTimeline(context.Background(), "", "csv")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename("   "))
	assert.Equal(t, "acme_corp-jp", sanitizeFilename(" Acme Corp/JP "))

	long := sanitizeFilename(strings.Repeat("카", 40))
	assert.True(t, utf8.ValidString(long))
	assert.LessOrEqual(t, len(long), maxFilenameBytes)
	assert.Equal(t, strings.Repeat("카", 33), long)
}
