package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/middleware"
	"github.com/noah-isme/recruit-timeline-api/internal/service"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/response"
)

type timelineService interface {
	Timeline(ctx context.Context, companyName string) (*dto.TimelineResponse, error)
	KeywordLeadTime(ctx context.Context, companyName, keyword string) (*dto.LeadTimeResponse, error)
}

type timelineExporter interface {
	ExportTimeline(ctx context.Context, companyName, format string) (*service.ExportResult, error)
}

// TimelineHandler serves company timelines and lead-time statistics.
type TimelineHandler struct {
	service  timelineService
	exporter timelineExporter
}

// NewTimelineHandler constructs the handler.
func NewTimelineHandler(service timelineService, exporter timelineExporter) *TimelineHandler {
	return &TimelineHandler{service: service, exporter: exporter}
}

// Timeline godoc
// @Summary Representative timeline per unit of a company
// @Tags Timelines
// @Produce json
// @Param company query string true "Company name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timelines [get]
func (h *TimelineHandler) Timeline(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	resp, err := h.service.Timeline(c.Request.Context(), c.Query("company"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.MarkCache(c, resp.Cached)
	middleware.AddMeta(c, "units", len(resp.Units))
	response.JSON(c, http.StatusOK, resp, nil, middleware.Meta(c))
}

// LeadTime godoc
// @Summary Lead time in days before a keyword step
// @Tags Timelines
// @Produce json
// @Param company query string true "Company name"
// @Param keyword query string true "Step keyword"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timelines/lead-time [get]
func (h *TimelineHandler) LeadTime(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	resp, err := h.service.KeywordLeadTime(c.Request.Context(), c.Query("company"), c.Query("keyword"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.MarkCache(c, resp.Cached)
	response.JSON(c, http.StatusOK, resp, nil, middleware.Meta(c))
}

// Export godoc
// @Summary Download a company timeline
// @Tags Timelines
// @Produce text/csv
// @Produce application/pdf
// @Param company query string true "Company name"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /timelines/export [get]
func (h *TimelineHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	result, err := h.exporter.ExportTimeline(c.Request.Context(), c.Query("company"), strings.TrimSpace(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.ContentType, result.Filename, result.Payload)
}
