package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/response"
)

type officialDateRecorder interface {
	Record(ctx context.Context, stepID int64, req dto.RecordOfficialDateRequest, actorID string) (*dto.OfficialDateResponse, error)
}

// OfficialDateHandler lets admins attach confirmed dates to steps.
type OfficialDateHandler struct {
	service officialDateRecorder
}

// NewOfficialDateHandler constructs the handler.
func NewOfficialDateHandler(service officialDateRecorder) *OfficialDateHandler {
	return &OfficialDateHandler{service: service}
}

// Record godoc
// @Summary Record an official step date
// @Tags Steps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Step ID"
// @Param payload body dto.RecordOfficialDateRequest true "Official date"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/steps/{id}/official-dates [post]
func (h *OfficialDateHandler) Record(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	stepID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || stepID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid step id"))
		return
	}
	var req dto.RecordOfficialDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid official date payload"))
		return
	}
	result, err := h.service.Record(c.Request.Context(), stepID, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
