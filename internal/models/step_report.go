package models

import (
	"fmt"
	"strings"
	"time"
)

// StepReportStatus captures the moderation lifecycle of a crowd report.
type StepReportStatus string

const (
	StepReportPending   StepReportStatus = "PENDING"
	StepReportProcessed StepReportStatus = "PROCESSED"
	StepReportDiscarded StepReportStatus = "DISCARDED"
)

// IsValid reports whether the status is known.
func (s StepReportStatus) IsValid() bool {
	switch s {
	case StepReportPending, StepReportProcessed, StepReportDiscarded:
		return true
	default:
		return false
	}
}

type stepRefKind uint8

const (
	stepRefNone stepRefKind = iota
	stepRefID
	stepRefName
)

// StepRef points a report at a recruitment step, either by a resolved step id
// or by a free-text step name. The zero value is invalid.
type StepRef struct {
	kind stepRefKind
	id   int64
	name string
}

// StepRefByID references a resolved recruitment step.
func StepRefByID(id int64) StepRef {
	return StepRef{kind: stepRefID, id: id}
}

// StepRefByName references a step by free text. The name is trimmed; an empty
// name yields the invalid zero StepRef.
func StepRefByName(name string) StepRef {
	name = strings.TrimSpace(name)
	if name == "" {
		return StepRef{}
	}
	return StepRef{kind: stepRefName, name: name}
}

// StepRefFromColumns rebuilds a StepRef from its nullable storage columns.
func StepRefFromColumns(stepID *int64, stepName *string) (StepRef, error) {
	switch {
	case stepID != nil && stepName != nil:
		return StepRef{}, fmt.Errorf("step reference has both id %d and name %q", *stepID, *stepName)
	case stepID != nil:
		return StepRefByID(*stepID), nil
	case stepName != nil:
		ref := StepRefByName(*stepName)
		if !ref.Valid() {
			return StepRef{}, fmt.Errorf("step reference has blank name")
		}
		return ref, nil
	default:
		return StepRef{}, fmt.Errorf("step reference is empty")
	}
}

// Valid reports whether the reference is set.
func (r StepRef) Valid() bool { return r.kind != stepRefNone }

// ID returns the resolved step id when the reference is resolved.
func (r StepRef) ID() (int64, bool) { return r.id, r.kind == stepRefID }

// Name returns the free-text step name when the reference is unresolved.
func (r StepRef) Name() (string, bool) { return r.name, r.kind == stepRefName }

// Columns returns the nullable storage representation.
func (r StepRef) Columns() (*int64, *string) {
	switch r.kind {
	case stepRefID:
		id := r.id
		return &id, nil
	case stepRefName:
		name := r.name
		return nil, &name
	default:
		return nil, nil
	}
}

// DedupToken is the step component of a report deduplication key.
func (r StepRef) DedupToken() string {
	switch r.kind {
	case stepRefID:
		return fmt.Sprintf("id:%d", r.id)
	case stepRefName:
		return "name:" + strings.ToLower(r.name)
	default:
		return ""
	}
}

// StepDateReport is a raw crowd submission about when a recruitment step happened.
type StepDateReport struct {
	ID            string
	CompanyName   string
	CompanyID     *int64
	UnitCategory  *string
	ChannelType   ChannelType
	ReportedDate  *time.Time
	Step          StepRef
	FoldCount     int
	Status        StepReportStatus
	SubmitterHash *string
	DedupKey      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Year returns the calendar year of the reported date, if any.
func (r *StepDateReport) Year() *int {
	if r.ReportedDate == nil {
		return nil
	}
	y := r.ReportedDate.Year()
	return &y
}

// BuildDedupKey joins the fields that identify duplicate submissions.
func BuildDedupKey(companyName string, unitCategory *string, channelType ChannelType, reportedDate time.Time, step StepRef) string {
	category := ""
	if unitCategory != nil {
		category = NormalizeCategory(*unitCategory)
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(companyName)),
		category,
		string(channelType),
		StartOfDay(reportedDate).Format("2006-01-02"),
		step.DedupToken(),
	}, "|")
}

// StepReportCursor is the last row of a page when listing oldest first.
type StepReportCursor struct {
	CreatedAt time.Time
	ID        string
}

// StepReportFilter constrains listing queries. Listing is newest first
// unless OldestFirst is set; After implies OldestFirst.
type StepReportFilter struct {
	Status      []StepReportStatus
	Limit       int
	Offset      int
	OldestFirst bool
	After       *StepReportCursor
}
