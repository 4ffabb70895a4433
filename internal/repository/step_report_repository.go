package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
	"github.com/noah-isme/recruit-timeline-api/pkg/database"
)

var (
	// ErrReportNotPending signals a state-machine guard failed inside a transaction.
	ErrReportNotPending = errors.New("step report is not pending")
	// ErrDuplicatePendingReport signals an update collided with another pending report.
	ErrDuplicatePendingReport = errors.New("identical pending step report exists")
	// ErrReportChanged signals the report was edited after the caller loaded it.
	ErrReportChanged = errors.New("step report changed since it was loaded")
)

const uniqueViolation = "23505"

// StepReportRepository persists crowd step-date reports.
type StepReportRepository struct {
	db *sqlx.DB
}

// NewStepReportRepository constructs the repository.
func NewStepReportRepository(db *sqlx.DB) *StepReportRepository {
	return &StepReportRepository{db: db}
}

type stepReportRow struct {
	ID            string                  `db:"id"`
	CompanyName   string                  `db:"company_name"`
	CompanyID     *int64                  `db:"company_id"`
	UnitCategory  *string                 `db:"unit_category"`
	ChannelType   models.ChannelType      `db:"channel_type"`
	ReportedDate  *time.Time              `db:"reported_date"`
	StepID        *int64                  `db:"step_id"`
	StepName      *string                 `db:"step_name"`
	FoldCount     int                     `db:"fold_count"`
	Status        models.StepReportStatus `db:"status"`
	SubmitterHash *string                 `db:"submitter_hash"`
	DedupKey      string                  `db:"dedup_key"`
	CreatedAt     time.Time               `db:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at"`
	DeletedAt     *time.Time              `db:"deleted_at"`
}

func newStepReportRow(report *models.StepDateReport) stepReportRow {
	stepID, stepName := report.Step.Columns()
	return stepReportRow{
		ID:            report.ID,
		CompanyName:   report.CompanyName,
		CompanyID:     report.CompanyID,
		UnitCategory:  report.UnitCategory,
		ChannelType:   report.ChannelType,
		ReportedDate:  report.ReportedDate,
		StepID:        stepID,
		StepName:      stepName,
		FoldCount:     report.FoldCount,
		Status:        report.Status,
		SubmitterHash: report.SubmitterHash,
		DedupKey:      report.DedupKey,
		CreatedAt:     report.CreatedAt,
		UpdatedAt:     report.UpdatedAt,
		DeletedAt:     report.DeletedAt,
	}
}

func (row stepReportRow) toModel() (*models.StepDateReport, error) {
	step, err := models.StepRefFromColumns(row.StepID, row.StepName)
	if err != nil {
		return nil, fmt.Errorf("step report %s: %w", row.ID, err)
	}
	var reported *time.Time
	if row.ReportedDate != nil {
		d := models.StartOfDay(*row.ReportedDate)
		reported = &d
	}
	return &models.StepDateReport{
		ID:            row.ID,
		CompanyName:   row.CompanyName,
		CompanyID:     row.CompanyID,
		UnitCategory:  row.UnitCategory,
		ChannelType:   row.ChannelType,
		ReportedDate:  reported,
		Step:          step,
		FoldCount:     row.FoldCount,
		Status:        row.Status,
		SubmitterHash: row.SubmitterHash,
		DedupKey:      row.DedupKey,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		DeletedAt:     row.DeletedAt,
	}, nil
}

const stepReportColumns = `id, company_name, company_id, unit_category, channel_type, reported_date, step_id, step_name,
       fold_count, status, submitter_hash, dedup_key, created_at, updated_at, deleted_at`

// UpsertResult describes the row that absorbed a submission.
type UpsertResult struct {
	ID        string
	FoldCount int
	Inserted  bool
}

// UpsertPending inserts a new pending report or, when a pending report with the
// same dedup key exists, increments its fold count. The partial unique index on
// dedup_key makes concurrent identical submissions fold into one row.
func (r *StepReportRepository) UpsertPending(ctx context.Context, report *models.StepDateReport) (*UpsertResult, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = report.CreatedAt
	report.Status = models.StepReportPending
	if report.FoldCount < 1 {
		report.FoldCount = 1
	}
	const query = `INSERT INTO step_date_reports
	(id, company_name, company_id, unit_category, channel_type, reported_date, step_id, step_name,
	 fold_count, status, submitter_hash, dedup_key, created_at, updated_at, deleted_at)
	VALUES (:id, :company_name, :company_id, :unit_category, :channel_type, :reported_date, :step_id, :step_name,
	 :fold_count, :status, :submitter_hash, :dedup_key, :created_at, :updated_at, :deleted_at)
	ON CONFLICT (dedup_key) WHERE status = 'PENDING'
	DO UPDATE SET fold_count = step_date_reports.fold_count + 1, updated_at = EXCLUDED.updated_at
	RETURNING id, fold_count, (xmax = 0) AS inserted`

	rows, err := r.db.NamedQueryContext(ctx, query, newStepReportRow(report))
	if err != nil {
		return nil, fmt.Errorf("upsert step report: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("upsert step report: %w", err)
		}
		return nil, fmt.Errorf("upsert step report: no row returned")
	}
	var result UpsertResult
	if err := rows.Scan(&result.ID, &result.FoldCount, &result.Inserted); err != nil {
		return nil, fmt.Errorf("scan upserted step report: %w", err)
	}
	return &result, nil
}

// GetByID fetches a report by identifier.
func (r *StepReportRepository) GetByID(ctx context.Context, id string) (*models.StepDateReport, error) {
	query := `SELECT ` + stepReportColumns + ` FROM step_date_reports WHERE id = $1`
	var row stepReportRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// List returns reports matching the filter, newest first.
func (r *StepReportRepository) List(ctx context.Context, filter models.StepReportFilter) ([]models.StepDateReport, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 2)
	builder.WriteString(`SELECT ` + stepReportColumns + ` FROM step_date_reports`)
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.After != nil {
		args = append(args, filter.After.CreatedAt, filter.After.ID)
		conditions = append(conditions, fmt.Sprintf("(created_at, id) > ($%d, $%d)", len(args)-1, len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	if filter.OldestFirst || filter.After != nil {
		builder.WriteString(" ORDER BY created_at, id")
	} else {
		builder.WriteString(" ORDER BY created_at DESC, id")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var rows []stepReportRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list step reports: %w", err)
	}
	reports := make([]models.StepDateReport, 0, len(rows))
	for _, row := range rows {
		report, err := row.toModel()
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// UpdatePending rewrites the mutable fields of a pending report. It returns
// sql.ErrNoRows when the report is no longer pending.
func (r *StepReportRepository) UpdatePending(ctx context.Context, report *models.StepDateReport) error {
	report.UpdatedAt = time.Now().UTC()
	const query = `UPDATE step_date_reports SET
	company_name = :company_name, company_id = :company_id, unit_category = :unit_category,
	channel_type = :channel_type, reported_date = :reported_date, step_id = :step_id, step_name = :step_name,
	dedup_key = :dedup_key, updated_at = :updated_at
	WHERE id = :id AND status = 'PENDING'`
	result, err := r.db.NamedExecContext(ctx, query, newStepReportRow(report))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicatePendingReport
		}
		return fmt.Errorf("update step report: %w", err)
	}
	return expectOneRow(result, "update step report")
}

// Discard marks a pending report as discarded.
func (r *StepReportRepository) Discard(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE step_date_reports SET status = $2, deleted_at = $3, updated_at = $3
	WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, models.StepReportDiscarded, at)
	if err != nil {
		return fmt.Errorf("discard step report: %w", err)
	}
	return expectOneRow(result, "discard step report")
}

// PromoteParams describes a promotion of a pending report. StepID and
// TargetDate are derived from the report identified by DedupKey and CompanyID.
type PromoteParams struct {
	ReportID   string
	DedupKey   string
	CompanyID  *int64
	StepID     int64
	TargetDate time.Time
	At         time.Time
}

// Promote merges a pending report into the observation store and marks it
// processed, all in one transaction. It returns sql.ErrNoRows when the report
// does not exist, ErrReportNotPending when it has left the PENDING state and
// ErrReportChanged when it was edited since the caller loaded it.
func (r *StepReportRepository) Promote(ctx context.Context, params PromoteParams) (*models.StepDateLog, error) {
	var log *models.StepDateLog
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var current struct {
			FoldCount int                     `db:"fold_count"`
			Status    models.StepReportStatus `db:"status"`
			DedupKey  string                  `db:"dedup_key"`
			CompanyID sql.NullInt64           `db:"company_id"`
		}
		const lockQuery = `SELECT fold_count, status, dedup_key, company_id FROM step_date_reports WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &current, lockQuery, params.ReportID); err != nil {
			return err
		}
		if current.Status != models.StepReportPending {
			return ErrReportNotPending
		}
		if current.DedupKey != params.DedupKey || !sameCompany(current.CompanyID, params.CompanyID) {
			return ErrReportChanged
		}

		log = &models.StepDateLog{
			StepID:     params.StepID,
			TargetDate: params.TargetDate,
			Weight:     current.FoldCount,
			Type:       models.StepDateLogReport,
			UpdatedAt:  params.At,
		}
		if err := mergeStepDateLog(ctx, tx, log); err != nil {
			return err
		}

		const markQuery = `UPDATE step_date_reports SET step_id = $2, step_name = NULL, status = $3, updated_at = $4
		WHERE id = $1 AND status = 'PENDING'`
		result, err := tx.ExecContext(ctx, markQuery, params.ReportID, params.StepID, models.StepReportProcessed, params.At)
		if err != nil {
			return fmt.Errorf("mark step report processed: %w", err)
		}
		if err := expectOneRow(result, "mark step report processed"); err != nil {
			return ErrReportNotPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func sameCompany(stored sql.NullInt64, loaded *int64) bool {
	if !stored.Valid || loaded == nil {
		return !stored.Valid && loaded == nil
	}
	return stored.Int64 == *loaded
}

func expectOneRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
