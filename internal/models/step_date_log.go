package models

import "time"

// StepDateLogType marks where a date observation came from.
type StepDateLogType string

const (
	StepDateLogReport   StepDateLogType = "REPORT"
	StepDateLogOfficial StepDateLogType = "OFFICIAL"
)

// StepDateLog is a weighted date observation attached to a recruitment step.
// TargetDate always carries a zero time-of-day in UTC.
type StepDateLog struct {
	ID         string          `db:"id" json:"id"`
	StepID     int64           `db:"step_id" json:"stepId"`
	TargetDate time.Time       `db:"target_date" json:"targetDate"`
	Weight     int             `db:"weight" json:"weight"`
	Type       StepDateLogType `db:"type" json:"type"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}

// StartOfDay truncates t to midnight UTC of its calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
