package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

type stepLookup interface {
	GetStep(ctx context.Context, id int64) (*models.RecruitmentStep, error)
}

type observationWriter interface {
	Merge(ctx context.Context, log *models.StepDateLog) error
}

// OfficialDateService records company-confirmed step dates. Each record adds
// one OFFICIAL observation; the resolver scores it above crowd reports.
type OfficialDateService struct {
	steps    stepLookup
	logs     observationWriter
	cache    cacheInvalidator
	audit    auditLogger
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
}

// NewOfficialDateService constructs the service. cache and audit may be nil.
func NewOfficialDateService(steps stepLookup, logs observationWriter, cache cacheInvalidator, audit auditLogger, logger *zap.Logger) *OfficialDateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficialDateService{
		steps:    steps,
		logs:     logs,
		cache:    cache,
		audit:    audit,
		validate: validator.New(),
		now:      time.Now,
		logger:   logger,
	}
}

// Record merges an OFFICIAL observation for stepID on the requested date.
func (s *OfficialDateService) Record(ctx context.Context, stepID int64, req dto.RecordOfficialDateRequest, actorID string) (*dto.OfficialDateResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid official date payload")
	}
	date, err := time.Parse(reportDateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	step, err := s.steps.GetStep(ctx, stepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "step not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load step")
	}

	log := &models.StepDateLog{
		StepID:     step.ID,
		TargetDate: date,
		Weight:     1,
		Type:       models.StepDateLogOfficial,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.logs.Merge(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record official date")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, CompanyCachePattern(step.CompanyID)); err != nil {
			s.logger.Warn("failed to invalidate timeline cache", zap.Int64("company_id", step.CompanyID), zap.Error(err))
		}
	}
	s.emitAudit(ctx, actorID, log)
	s.logger.Info("official date recorded",
		requestIDField(ctx),
		zap.Int64("step_id", step.ID),
		zap.String("date", req.Date),
		zap.Int("weight", log.Weight),
	)
	return &dto.OfficialDateResponse{StepID: step.ID, Date: log.TargetDate.Format(reportDateLayout), Weight: log.Weight}, nil
}

func (s *OfficialDateService) emitAudit(ctx context.Context, actorID string, log *models.StepDateLog) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"stepId": log.StepID,
		"date":   log.TargetDate.Format(reportDateLayout),
		"weight": log.Weight,
	})
	if err != nil {
		payload = []byte("{}")
	}
	entry := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     models.AuditActionOfficialDate,
		Resource:   "step_date_log",
		ResourceID: optionalString(log.ID),
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "official-date-service",
		CreatedAt:  s.now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
