package models

// TimelineEntry is one stage of a resolved unit timeline.
type TimelineEntry struct {
	StepID     int64   `json:"stepId"`
	StepName   string  `json:"stepName"`
	Date       *string `json:"date"`
	DayDiff    *int    `json:"dayDiff"`
	PrevStepID *int64  `json:"prevStepId,omitempty"`
}

// UnitTimeline is the representative-channel timeline of one recruitment unit.
type UnitTimeline struct {
	UnitID      int64           `json:"unitId"`
	Category    string          `json:"category"`
	ChannelID   int64           `json:"channelId"`
	ChannelType ChannelType     `json:"channelType"`
	Year        *int            `json:"year,omitempty"`
	Steps       []TimelineEntry `json:"steps"`
}

// LeadTime summarises day differences between a keyword step and its predecessor.
type LeadTime struct {
	Median  *int `json:"median"`
	Min     *int `json:"min"`
	Max     *int `json:"max"`
	Samples int  `json:"samples"`
}
