package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

func TestAuditRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	log := &models.AuditLog{Action: models.AuditActionReportDiscard, Resource: "step_report", IPAddress: "system", UserAgent: "test"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.False(t, log.CreatedAt.IsZero())

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("relation does not exist"))
	assert.Error(t, repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: "x"}))
}
