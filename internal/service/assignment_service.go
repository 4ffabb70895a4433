package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/jobs"
	"github.com/noah-isme/recruit-timeline-api/pkg/middleware/requestid"
)

// JobTypeProcessPending identifies batch assignment jobs on the queue.
const JobTypeProcessPending = "step_report.process_pending"

// DefaultAssignmentBatchSize is the page size used when scanning pending reports.
const DefaultAssignmentBatchSize = 100

type pendingProcessor interface {
	List(ctx context.Context, query dto.StepReportQuery) ([]dto.StepReportView, error)
	Process(ctx context.Context, id string, req dto.ProcessStepReportRequest, actorID string) (*dto.StepReportView, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AssignmentService promotes every pending report that is not on hold.
type AssignmentService struct {
	reports   pendingProcessor
	audit     auditLogger
	queue     jobEnqueuer
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(reports pendingProcessor, audit auditLogger, batchSize int, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = DefaultAssignmentBatchSize
	}
	return &AssignmentService{reports: reports, audit: audit, batchSize: batchSize, now: time.Now, logger: logger}
}

// AttachQueue sets the queue used by Enqueue.
func (s *AssignmentService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Enqueue schedules a background assignment run and returns its job id. A
// run that is already queued or running absorbs the request and its id is
// returned instead.
func (s *AssignmentService) Enqueue(actorID string) (string, error) {
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "assignment queue unavailable")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeProcessPending, Key: JobTypeProcessPending, Payload: actorID}
	if err := s.queue.Enqueue(job); err != nil {
		var dup *jobs.DuplicateJobError
		if errors.As(err, &dup) {
			s.logger.Debug("assignment already in flight", zap.String("job_id", dup.JobID))
			return dup.JobID, nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue assignment")
	}
	return job.ID, nil
}

// HandleJob is the queue handler for JobTypeProcessPending.
func (s *AssignmentService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeProcessPending {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	actorID, _ := job.Payload.(string)
	result, err := s.ProcessPending(requestid.WithID(ctx, job.ID), actorID)
	if err != nil {
		return err
	}
	s.logger.Info("assignment job finished",
		zap.String("job_id", job.ID),
		zap.Int("processed", result.Processed),
		zap.Int("on_hold", result.OnHold),
		zap.Int("failed", result.Failed),
	)
	return nil
}

// ProcessPending walks pending reports oldest first and promotes each one that
// is not on hold. Pages are keyed on (created_at, id) so every report is seen
// at most once per run, whatever is processed or submitted meanwhile.
func (s *AssignmentService) ProcessPending(ctx context.Context, actorID string) (*dto.BatchProcessResult, error) {
	result := &dto.BatchProcessResult{}
	var cursor *models.StepReportCursor
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := s.reports.List(ctx, dto.StepReportQuery{
			Status:      []models.StepReportStatus{models.StepReportPending},
			Limit:       s.batchSize,
			OldestFirst: true,
			After:       cursor,
		})
		if err != nil {
			return result, err
		}
		if len(page) == 0 {
			break
		}
		last := page[len(page)-1]
		cursor = &models.StepReportCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		for _, view := range page {
			result.Scanned++
			if view.OnHold {
				result.OnHold++
				continue
			}
			if _, err := s.reports.Process(ctx, view.ID, dto.ProcessStepReportRequest{}, actorID); err != nil {
				if appErrors.FromError(err).Code == appErrors.ErrReportOnHold.Code {
					result.OnHold++
					continue
				}
				result.Failed++
				s.logger.Warn("pending report not processed", zap.String("report_id", view.ID), zap.Error(err))
				continue
			}
			result.Processed++
		}
	}

	s.emitAudit(ctx, actorID, result)
	s.logger.Info("pending reports assigned",
		zap.Int("scanned", result.Scanned),
		zap.Int("processed", result.Processed),
		zap.Int("on_hold", result.OnHold),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *AssignmentService) emitAudit(ctx context.Context, actorID string, result *dto.BatchProcessResult) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte("{}")
	}
	log := &models.AuditLog{
		UserID:    optionalString(actorID),
		Action:    models.AuditActionBatchProcess,
		Resource:  "step_report",
		NewValues: payload,
		IPAddress: "system",
		UserAgent: "assignment-service",
		CreatedAt: s.now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.Error(err))
	}
}
