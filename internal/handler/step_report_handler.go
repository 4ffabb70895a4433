package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/response"
)

const defaultReportPageSize = 50

type stepReportService interface {
	Submit(ctx context.Context, req dto.SubmitStepReportRequest, clientIP string) (*dto.SubmitStepReportResponse, error)
	List(ctx context.Context, query dto.StepReportQuery) ([]dto.StepReportView, error)
	Get(ctx context.Context, id string) (*dto.StepReportView, error)
	Update(ctx context.Context, id string, req dto.UpdateStepReportRequest, actorID string) (*dto.StepReportView, error)
	Process(ctx context.Context, id string, req dto.ProcessStepReportRequest, actorID string) (*dto.StepReportView, error)
	Discard(ctx context.Context, id string, actorID string) (*dto.StepReportView, error)
}

type assignmentScheduler interface {
	Enqueue(actorID string) (string, error)
}

// StepReportHandler exposes crowd report intake and moderation endpoints.
type StepReportHandler struct {
	service    stepReportService
	assignment assignmentScheduler
}

// NewStepReportHandler constructs the handler.
func NewStepReportHandler(service stepReportService, assignment assignmentScheduler) *StepReportHandler {
	return &StepReportHandler{service: service, assignment: assignment}
}

// Submit godoc
// @Summary Submit a step date report
// @Tags StepReports
// @Accept json
// @Produce json
// @Param payload body dto.SubmitStepReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /step-reports [post]
func (h *StepReportHandler) Submit(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.SubmitStepReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	result, err := h.service.Submit(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List step reports
// @Tags StepReports
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses (PENDING,PROCESSED,DISCARDED)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /admin/step-reports [get]
func (h *StepReportHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, err := parseReportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{
		"limit":  query.Limit,
		"offset": query.Offset,
		"count":  len(items),
	})
}

// Get godoc
// @Summary Get a step report
// @Tags StepReports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/step-reports/{id} [get]
func (h *StepReportHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	view, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Rewrite a pending step report
// @Tags StepReports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param payload body dto.UpdateStepReportRequest true "Report payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/step-reports/{id} [put]
func (h *StepReportHandler) Update(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.UpdateStepReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	view, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Process godoc
// @Summary Promote a pending report into the date log
// @Tags StepReports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param payload body dto.ProcessStepReportRequest false "Optional step override"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/step-reports/{id}/process [post]
func (h *StepReportHandler) Process(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.ProcessStepReportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid process payload"))
			return
		}
	}
	view, err := h.service.Process(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Discard godoc
// @Summary Discard a pending report
// @Tags StepReports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/step-reports/{id}/discard [post]
func (h *StepReportHandler) Discard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	view, err := h.service.Discard(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ProcessPending godoc
// @Summary Enqueue promotion of every pending report that is not on hold
// @Tags StepReports
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Router /admin/step-reports/process-pending [post]
func (h *StepReportHandler) ProcessPending(c *gin.Context) {
	if h.assignment == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "assignment worker unavailable"))
		return
	}
	jobID, err := h.assignment.Enqueue(actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.BatchProcessJobResponse{JobID: jobID})
}

func parseReportQuery(c *gin.Context) (dto.StepReportQuery, error) {
	query := dto.StepReportQuery{Limit: defaultReportPageSize}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		raw = strings.ToUpper(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		status := models.StepReportStatus(raw)
		if !status.IsValid() {
			return query, appErrors.Clone(appErrors.ErrValidation, "unknown status "+raw)
		}
		query.Status = append(query.Status, status)
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return query, err
	}
	if limit > 0 {
		query.Limit = limit
	}
	if query.Offset, err = intQuery(c, "offset"); err != nil {
		return query, err
	}
	return query, nil
}
