package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

type mergeRecorder struct {
	weights map[observationKey]int
	err     error
}

func (m *mergeRecorder) Merge(_ context.Context, log *models.StepDateLog) error {
	if m.err != nil {
		return m.err
	}
	key := observationKey{stepID: log.StepID, date: log.TargetDate.Format(reportDateLayout)}
	m.weights[key] += log.Weight
	log.Weight = m.weights[key]
	log.ID = "log-1"
	return nil
}

func newOfficialFixture() (*OfficialDateService, *mergeRecorder, *auditRecorder, *invalidationRecorder) {
	logs := &mergeRecorder{weights: map[observationKey]int{}}
	audit := &auditRecorder{}
	cache := &invalidationRecorder{}
	svc := NewOfficialDateService(acmeLookup(), logs, cache, audit, zap.NewNop())
	svc.now = newFakeClock().Now
	return svc, logs, audit, cache
}

func TestOfficialDateRecordAccumulates(t *testing.T) {
	svc, _, audit, cache := newOfficialFixture()
	ctx := context.Background()

	first, err := svc.Record(ctx, 1001, dto.RecordOfficialDateRequest{Date: "2024-04-02"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Weight)

	second, err := svc.Record(ctx, 1001, dto.RecordOfficialDateRequest{Date: "2024-04-02"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Weight)
	assert.Equal(t, "2024-04-02", second.Date)

	assert.Equal(t, []string{"timeline:1:*", "timeline:1:*"}, cache.patterns)
	require.Len(t, audit.logs, 2)
	assert.Equal(t, models.AuditActionOfficialDate, audit.logs[0].Action)
	assert.JSONEq(t, `{"stepId":1001,"date":"2024-04-02","weight":1}`, string(audit.logs[0].NewValues))
}

func TestOfficialDateRecordRejects(t *testing.T) {
	svc, logs, _, _ := newOfficialFixture()
	ctx := context.Background()

	_, err := svc.Record(ctx, 1001, dto.RecordOfficialDateRequest{Date: "02/04/2024"}, "admin")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	_, err = svc.Record(ctx, 9999, dto.RecordOfficialDateRequest{Date: "2024-04-02"}, "admin")
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(err))

	logs.err = errors.New("db down")
	_, err = svc.Record(ctx, 1001, dto.RecordOfficialDateRequest{Date: "2024-04-02"}, "admin")
	assert.Equal(t, appErrors.ErrInternal.Code, errCode(err))
}

