package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	"github.com/noah-isme/recruit-timeline-api/internal/repository"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/middleware/requestid"
)

const reportDateLayout = "2006-01-02"

type stepReportStore interface {
	UpsertPending(ctx context.Context, report *models.StepDateReport) (*repository.UpsertResult, error)
	GetByID(ctx context.Context, id string) (*models.StepDateReport, error)
	List(ctx context.Context, filter models.StepReportFilter) ([]models.StepDateReport, error)
	UpdatePending(ctx context.Context, report *models.StepDateReport) error
	Discard(ctx context.Context, id string, at time.Time) error
	Promote(ctx context.Context, params repository.PromoteParams) (*models.StepDateLog, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// StepReportService owns crowd report intake and moderation.
type StepReportService struct {
	repo        stepReportStore
	identifiers *IdentifierResolver
	limiter     CooldownLimiter
	audit       auditLogger
	cache       cacheInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	fingerprint []byte
	now         func() time.Time
	logger      *zap.Logger
}

// StepReportServiceOption configures the service.
type StepReportServiceOption func(*StepReportService)

// WithReportClock overrides the clock used for moderation timestamps.
func WithReportClock(clock func() time.Time) StepReportServiceOption {
	return func(s *StepReportService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithReportCache sets the cache whose company entries are dropped on promotion.
func WithReportCache(cache cacheInvalidator) StepReportServiceOption {
	return func(s *StepReportService) { s.cache = cache }
}

// WithReportMetrics attaches instrumentation.
func WithReportMetrics(metrics *MetricsService) StepReportServiceOption {
	return func(s *StepReportService) { s.metrics = metrics }
}

// WithFingerprintSecret keys the hash applied to submitter addresses.
func WithFingerprintSecret(secret string) StepReportServiceOption {
	return func(s *StepReportService) {
		if secret == "" {
			return
		}
		sum := blake2b.Sum256([]byte(secret))
		s.fingerprint = sum[:]
	}
}

// WithReportValidator overrides the struct validator.
func WithReportValidator(validate *validator.Validate) StepReportServiceOption {
	return func(s *StepReportService) {
		if validate != nil {
			s.validator = validate
		}
	}
}

// NewStepReportService constructs the service with defaults.
func NewStepReportService(repo stepReportStore, identifiers *IdentifierResolver, limiter CooldownLimiter, audit auditLogger, logger *zap.Logger, opts ...StepReportServiceOption) *StepReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewMemoryCooldownLimiter(DefaultReportCooldown, 10, nil)
	}
	svc := &StepReportService{
		repo:        repo,
		identifiers: identifiers,
		limiter:     limiter,
		audit:       audit,
		validator:   validator.New(),
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	svc.validator.RegisterValidation("channel_type", func(fl validator.FieldLevel) bool {
		return models.NormalizeChannelType(fl.Field().String()).IsValid()
	})
	return svc
}

// Submit ingests a crowd report. Identical pending reports fold into one row.
// The cooldown applies per client address; an unknown address is not limited.
func (s *StepReportService) Submit(ctx context.Context, req dto.SubmitStepReportRequest, clientIP string) (*dto.SubmitStepReportResponse, error) {
	submitter := s.fingerprintIP(clientIP)
	allowed, err := s.limiter.Allow(ctx, submitter)
	if err != nil {
		s.logger.Warn("cooldown check failed, admitting report", zap.Error(err))
		allowed = true
	}
	if !allowed {
		s.metrics.RecordReportSubmission(SubmissionRateLimited)
		return nil, appErrors.Clone(appErrors.ErrRateLimited, "too many reports, retry later")
	}

	resp, err := s.submit(ctx, req, submitter)
	if err != nil {
		s.metrics.RecordReportSubmission(SubmissionRejected)
		if releaseErr := s.limiter.Release(ctx, submitter); releaseErr != nil {
			s.logger.Warn("failed to release cooldown reservation", zap.Error(releaseErr))
		}
		return nil, err
	}
	if resp.Folded {
		s.metrics.RecordReportSubmission(SubmissionFolded)
	} else {
		s.metrics.RecordReportSubmission(SubmissionInserted)
	}
	return resp, nil
}

func (s *StepReportService) submit(ctx context.Context, req dto.SubmitStepReportRequest, submitter string) (*dto.SubmitStepReportResponse, error) {
	report, err := s.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}
	if submitter != "" {
		report.SubmitterHash = &submitter
	}
	report.CreatedAt = s.now().UTC()

	result, err := s.repo.UpsertPending(ctx, report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store step report")
	}
	s.logger.Debug("step report accepted",
		requestIDField(ctx),
		zap.String("report_id", result.ID),
		zap.Int("fold_count", result.FoldCount),
		zap.Bool("folded", !result.Inserted),
	)
	return &dto.SubmitStepReportResponse{ID: result.ID, FoldCount: result.FoldCount, Folded: !result.Inserted}, nil
}

// buildReport validates and normalizes submit/update payloads, resolving what
// it can of the recruitment hierarchy.
func (s *StepReportService) buildReport(ctx context.Context, req dto.SubmitStepReportRequest) (*models.StepDateReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "companyName is required")
	}
	step := stepRefFromRequest(req.StepID, req.StepName)
	if !step.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stepId or stepName is required")
	}
	reported, err := time.Parse(reportDateLayout, req.ReportedDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reportedDate must be YYYY-MM-DD")
	}
	reported = models.StartOfDay(reported)

	report := &models.StepDateReport{
		CompanyName:  companyName,
		ChannelType:  models.NormalizeChannelType(req.ChannelType),
		ReportedDate: &reported,
		Step:         step,
	}
	if req.UnitCategory != nil {
		if code := models.NormalizeCategory(*req.UnitCategory); code != "" {
			report.UnitCategory = &code
		}
	}

	company, err := s.identifiers.Company(ctx, companyName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve company")
	}
	if company != nil {
		companyID := company.ID
		report.CompanyID = &companyID
		unit, err := s.identifiers.Unit(ctx, company.ID, report.UnitCategory)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve unit")
		}
		if unit != nil {
			category := unit.Category
			report.UnitCategory = &category
		}
	}

	if stepID, ok := step.ID(); ok {
		resolved, err := s.identifiers.Step(ctx, stepID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve step")
		}
		if resolved == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "step not found")
		}
		if company == nil || resolved.CompanyID != company.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "step does not belong to company")
		}
	}

	report.DedupKey = models.BuildDedupKey(report.CompanyName, report.UnitCategory, report.ChannelType, reported, step)
	return report, nil
}

// List returns reports with their live hold state.
func (s *StepReportService) List(ctx context.Context, query dto.StepReportQuery) ([]dto.StepReportView, error) {
	reports, err := s.repo.List(ctx, models.StepReportFilter{
		Status:      query.Status,
		Limit:       query.Limit,
		Offset:      query.Offset,
		OldestFirst: query.OldestFirst,
		After:       query.After,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list step reports")
	}
	views := make([]dto.StepReportView, 0, len(reports))
	for i := range reports {
		view, err := s.view(ctx, &reports[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Get returns one report with its live hold state.
func (s *StepReportService) Get(ctx context.Context, id string) (*dto.StepReportView, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, report)
}

// Update rewrites a pending report under the same rules as intake.
func (s *StepReportService) Update(ctx context.Context, id string, req dto.UpdateStepReportRequest, actorID string) (*dto.StepReportView, error) {
	current, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.buildReport(ctx, dto.SubmitStepReportRequest(req))
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.FoldCount = current.FoldCount
	updated.Status = current.Status
	updated.SubmitterHash = current.SubmitterHash
	updated.CreatedAt = current.CreatedAt

	if err := s.repo.UpdatePending(ctx, updated); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrConflict, "step report is not pending")
		case errors.Is(err, repository.ErrDuplicatePendingReport):
			return nil, appErrors.Clone(appErrors.ErrConflict, "an identical pending step report exists")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update step report")
		}
	}

	s.emitAudit(ctx, actorID, models.AuditActionReportUpdate, updated.ID, current, updated)
	return s.view(ctx, updated)
}

// Process promotes a pending report into the observation store. An override
// step replaces the report's own step and must belong to the report's company.
func (s *StepReportService) Process(ctx context.Context, id string, req dto.ProcessStepReportRequest, actorID string) (*dto.StepReportView, error) {
	report, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ReportedDate == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "step report has no reported date")
	}

	candidate := *report
	if req.StepID != nil {
		candidate.Step = models.StepRefByID(*req.StepID)
	}
	hold, err := s.identifiers.Hold(ctx, &candidate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve step report")
	}
	if hold.OnHold {
		return nil, appErrors.Clone(appErrors.ErrReportOnHold, "step report is on hold: "+hold.Reason)
	}

	stepID, _ := candidate.Step.ID()
	step, err := s.identifiers.Step(ctx, stepID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve step")
	}
	if step == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "step not found")
	}
	if step.CompanyID != hold.Company.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "step does not belong to company")
	}

	at := s.now().UTC()
	observation, err := s.repo.Promote(ctx, repository.PromoteParams{
		ReportID:   report.ID,
		DedupKey:   report.DedupKey,
		CompanyID:  report.CompanyID,
		StepID:     step.ID,
		TargetDate: models.StartOfDay(*report.ReportedDate),
		At:         at,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "step report not found")
		case errors.Is(err, repository.ErrReportNotPending):
			return nil, appErrors.Clone(appErrors.ErrConflict, "step report is not pending")
		case errors.Is(err, repository.ErrReportChanged):
			return nil, appErrors.Clone(appErrors.ErrConflict, "step report changed while processing, reload and retry")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process step report")
		}
	}

	before := *report
	report.Step = models.StepRefByID(step.ID)
	report.Status = models.StepReportProcessed
	report.UpdatedAt = at
	if report.CompanyID == nil {
		companyID := hold.Company.ID
		report.CompanyID = &companyID
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, CompanyCachePattern(hold.Company.ID)); err != nil {
			s.logger.Warn("failed to invalidate timeline cache", zap.Int64("company_id", hold.Company.ID), zap.Error(err))
		}
	}
	s.metrics.RecordReportTransition(models.StepReportProcessed)
	s.emitAudit(ctx, actorID, models.AuditActionReportProcess, report.ID, &before, report)
	s.logger.Info("step report processed",
		requestIDField(ctx),
		zap.String("report_id", report.ID),
		zap.Int64("step_id", step.ID),
		zap.String("observation_id", observation.ID),
		zap.Int("weight", observation.Weight),
	)
	return s.view(ctx, report)
}

// Discard marks a pending report as discarded.
func (s *StepReportService) Discard(ctx context.Context, id string, actorID string) (*dto.StepReportView, error) {
	report, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if err := s.repo.Discard(ctx, report.ID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "step report is not pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to discard step report")
	}

	before := *report
	report.Status = models.StepReportDiscarded
	report.DeletedAt = &at
	report.UpdatedAt = at

	s.metrics.RecordReportTransition(models.StepReportDiscarded)
	s.emitAudit(ctx, actorID, models.AuditActionReportDiscard, report.ID, &before, report)
	s.logger.Info("step report discarded", requestIDField(ctx), zap.String("report_id", report.ID))
	return s.view(ctx, report)
}

func (s *StepReportService) load(ctx context.Context, id string) (*models.StepDateReport, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "step report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load step report")
	}
	return report, nil
}

func (s *StepReportService) loadPending(ctx context.Context, id string) (*models.StepDateReport, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != models.StepReportPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "step report is not pending")
	}
	return report, nil
}

func (s *StepReportService) view(ctx context.Context, report *models.StepDateReport) (*dto.StepReportView, error) {
	stepID, stepName := report.Step.Columns()
	view := &dto.StepReportView{
		ID:           report.ID,
		CompanyName:  report.CompanyName,
		CompanyID:    report.CompanyID,
		UnitCategory: report.UnitCategory,
		ChannelType:  report.ChannelType,
		StepID:       stepID,
		StepName:     stepName,
		FoldCount:    report.FoldCount,
		Status:       report.Status,
		CreatedAt:    report.CreatedAt,
		UpdatedAt:    report.UpdatedAt,
		DeletedAt:    report.DeletedAt,
	}
	if report.ReportedDate != nil {
		formatted := report.ReportedDate.Format(reportDateLayout)
		view.ReportedDate = &formatted
	}
	if report.Status != models.StepReportPending {
		return view, nil
	}
	hold, err := s.identifiers.Hold(ctx, report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve step report")
	}
	view.OnHold = hold.OnHold
	view.HoldReason = hold.Reason
	return view, nil
}

func (s *StepReportService) fingerprintIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	h, err := blake2b.New256(s.fingerprint)
	if err != nil {
		s.logger.Warn("fingerprint hash unavailable", zap.Error(err))
		return ip
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *StepReportService) emitAudit(ctx context.Context, actorID, action, reportID string, before, after *models.StepDateReport) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     action,
		Resource:   "step_report",
		ResourceID: &reportID,
		IPAddress:  "system",
		UserAgent:  "step-report-service",
		CreatedAt:  s.now().UTC(),
	}
	if before != nil {
		log.OldValues = auditSnapshot(before)
	}
	if after != nil {
		log.NewValues = auditSnapshot(after)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func auditSnapshot(report *models.StepDateReport) []byte {
	stepID, stepName := report.Step.Columns()
	payload, err := json.Marshal(map[string]interface{}{
		"companyName":  report.CompanyName,
		"companyId":    report.CompanyID,
		"unitCategory": report.UnitCategory,
		"channelType":  report.ChannelType,
		"reportedDate": report.ReportedDate,
		"stepId":       stepID,
		"stepName":     stepName,
		"foldCount":    report.FoldCount,
		"status":       report.Status,
	})
	if err != nil {
		return []byte("{}")
	}
	return payload
}

// stepRefFromRequest prefers the step id when both are given.
func stepRefFromRequest(stepID *int64, stepName *string) models.StepRef {
	if stepID != nil {
		return models.StepRefByID(*stepID)
	}
	if stepName != nil {
		return models.StepRefByName(*stepName)
	}
	return models.StepRef{}
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// requestIDField tags a log line with the originating HTTP request, or the
// job id when called from the assignment worker.
func requestIDField(ctx context.Context) zap.Field {
	return zap.String("request_id", requestid.FromContext(ctx))
}
