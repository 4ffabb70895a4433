package dto

import "github.com/noah-isme/recruit-timeline-api/internal/models"

// TimelineResponse lists the representative timeline of each unit of a company.
type TimelineResponse struct {
	Company string                `json:"company"`
	Units   []models.UnitTimeline `json:"units"`
	Cached  bool                  `json:"-"`
}

// LeadTimeResponse reports lead-time statistics for a keyword step.
type LeadTimeResponse struct {
	Company string `json:"company"`
	Keyword string `json:"keyword"`
	Cached  bool   `json:"-"`
	models.LeadTime
}

// RecordOfficialDateRequest attaches a company-confirmed date to a step.
type RecordOfficialDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// OfficialDateResponse echoes the merged observation.
type OfficialDateResponse struct {
	StepID int64  `json:"stepId"`
	Date   string `json:"date"`
	Weight int    `json:"weight"`
}
