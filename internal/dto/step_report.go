package dto

import (
	"time"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

// SubmitStepReportRequest is the public crowd report payload. Exactly one of
// StepID and StepName must be provided.
type SubmitStepReportRequest struct {
	CompanyName  string  `json:"companyName" validate:"required"`
	UnitCategory *string `json:"unitCategory,omitempty"`
	ChannelType  string  `json:"channelType" validate:"required,channel_type"`
	ReportedDate string  `json:"reportedDate" validate:"required,datetime=2006-01-02"`
	StepID       *int64  `json:"stepId,omitempty"`
	StepName     *string `json:"stepName,omitempty"`
}

// UpdateStepReportRequest rewrites a pending report.
type UpdateStepReportRequest SubmitStepReportRequest

// SubmitStepReportResponse identifies the row that absorbed the submission.
type SubmitStepReportResponse struct {
	ID        string `json:"id"`
	FoldCount int    `json:"foldCount"`
	Folded    bool   `json:"folded"`
}

// ProcessStepReportRequest optionally overrides the step a report is promoted to.
type ProcessStepReportRequest struct {
	StepID *int64 `json:"stepId,omitempty"`
}

// StepReportQuery mirrors supported listing filters.
type StepReportQuery struct {
	Status      []models.StepReportStatus
	Limit       int
	Offset      int
	OldestFirst bool
	After       *models.StepReportCursor
}

// StepReportView is the admin representation of a report with live hold state.
type StepReportView struct {
	ID           string                  `json:"id"`
	CompanyName  string                  `json:"companyName"`
	CompanyID    *int64                  `json:"companyId,omitempty"`
	UnitCategory *string                 `json:"unitCategory,omitempty"`
	ChannelType  models.ChannelType      `json:"channelType"`
	ReportedDate *string                 `json:"reportedDate,omitempty"`
	StepID       *int64                  `json:"stepId,omitempty"`
	StepName     *string                 `json:"stepName,omitempty"`
	FoldCount    int                     `json:"foldCount"`
	Status       models.StepReportStatus `json:"status"`
	OnHold       bool                    `json:"onHold"`
	HoldReason   string                  `json:"holdReason,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
	DeletedAt    *time.Time              `json:"deletedAt,omitempty"`
}

// BatchProcessResult summarises a pending-report assignment run.
type BatchProcessResult struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	OnHold    int `json:"onHold"`
	Failed    int `json:"failed"`
}

// BatchProcessJobResponse acknowledges an enqueued assignment run.
type BatchProcessJobResponse struct {
	JobID string `json:"jobId"`
}
