package models

import "strings"

// ChannelType distinguishes always-open channels from year-scoped ones.
type ChannelType string

const (
	ChannelTypeAlways ChannelType = "ALWAYS"
	ChannelTypeYearly ChannelType = "YEARLY"
)

// IsValid reports whether the channel type is one of the known values.
func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelTypeAlways, ChannelTypeYearly:
		return true
	default:
		return false
	}
}

// NormalizeChannelType upper-cases and trims raw input.
func NormalizeChannelType(raw string) ChannelType {
	return ChannelType(strings.ToUpper(strings.TrimSpace(raw)))
}

// UnitCategoryIntegrated is the generic job category. Specific categories take
// precedence over it when timelines are displayed.
const UnitCategoryIntegrated = "INTEGRATED"

// NormalizeCategory upper-cases and trims a unit category code.
func NormalizeCategory(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Company is a recruiting organisation.
type Company struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// RecruitmentUnit is a job category within a company.
type RecruitmentUnit struct {
	ID        int64  `db:"id" json:"id"`
	CompanyID int64  `db:"company_id" json:"companyId"`
	Category  string `db:"category" json:"category"`
}

// RecruitmentChannel is one concrete recruitment process for a unit.
type RecruitmentChannel struct {
	ID        int64       `db:"id" json:"id"`
	CompanyID int64       `db:"company_id" json:"companyId"`
	UnitID    int64       `db:"unit_id" json:"unitId"`
	Type      ChannelType `db:"type" json:"type"`
	Year      *int        `db:"year" json:"year,omitempty"`
	Active    bool        `db:"active" json:"active"`
}

// YearValue returns the channel year, or 0 when the channel has none.
func (c RecruitmentChannel) YearValue() int {
	if c.Year == nil {
		return 0
	}
	return *c.Year
}

// RecruitmentStep is an ordinal stage within a channel. PrevStepID and
// NextStepID are denormalized and may be stale; Position defines order.
type RecruitmentStep struct {
	ID         int64  `db:"id" json:"id"`
	ChannelID  int64  `db:"channel_id" json:"channelId"`
	CompanyID  int64  `db:"company_id" json:"companyId"`
	Name       string `db:"name" json:"name"`
	Position   int    `db:"position" json:"position"`
	PrevStepID *int64 `db:"prev_step_id" json:"prevStepId,omitempty"`
	NextStepID *int64 `db:"next_step_id" json:"nextStepId,omitempty"`
}

// ChannelLookup narrows the search for an active channel.
type ChannelLookup struct {
	CompanyID int64
	UnitID    *int64
	Type      ChannelType
	Year      *int
}
