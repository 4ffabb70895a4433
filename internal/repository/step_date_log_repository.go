package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

// StepDateLogRepository reads and merges dated step observations.
type StepDateLogRepository struct {
	db *sqlx.DB
}

// NewStepDateLogRepository constructs the repository.
func NewStepDateLogRepository(db *sqlx.DB) *StepDateLogRepository {
	return &StepDateLogRepository{db: db}
}

// ListByStepIDs returns all observations attached to the given steps.
func (r *StepDateLogRepository) ListByStepIDs(ctx context.Context, stepIDs []int64) ([]models.StepDateLog, error) {
	if len(stepIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, step_id, target_date, weight, type, created_at, updated_at
	FROM step_date_logs WHERE step_id = ANY($1)
	ORDER BY step_id, target_date`
	var logs []models.StepDateLog
	if err := r.db.SelectContext(ctx, &logs, query, pq.Array(stepIDs)); err != nil {
		return nil, fmt.Errorf("list step date logs: %w", err)
	}
	return logs, nil
}

type observedStepCount struct {
	ChannelID int64 `db:"channel_id"`
	Steps     int   `db:"steps"`
}

// CountObservedSteps returns, per channel, how many steps carry at least one observation.
func (r *StepDateLogRepository) CountObservedSteps(ctx context.Context, channelIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(channelIDs))
	if len(channelIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT s.channel_id, COUNT(DISTINCT s.id) AS steps
	FROM recruitment_steps s JOIN step_date_logs l ON l.step_id = s.id
	WHERE s.channel_id = ANY($1)
	GROUP BY s.channel_id`
	var rows []observedStepCount
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(channelIDs)); err != nil {
		return nil, fmt.Errorf("count observed steps: %w", err)
	}
	for _, row := range rows {
		counts[row.ChannelID] = row.Steps
	}
	return counts, nil
}

// Merge adds an observation, accumulating weight into an existing
// (step, date, type) row when present.
func (r *StepDateLogRepository) Merge(ctx context.Context, log *models.StepDateLog) error {
	return mergeStepDateLog(ctx, r.db, log)
}

const mergeStepDateLogQuery = `INSERT INTO step_date_logs (id, step_id, target_date, weight, type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (step_id, target_date, type)
DO UPDATE SET weight = step_date_logs.weight + EXCLUDED.weight, updated_at = EXCLUDED.updated_at
RETURNING id, weight, created_at, updated_at`

func mergeStepDateLog(ctx context.Context, q sqlx.QueryerContext, log *models.StepDateLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Weight < 1 {
		log.Weight = 1
	}
	if log.Type == "" {
		log.Type = models.StepDateLogReport
	}
	now := log.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	log.TargetDate = models.StartOfDay(log.TargetDate)
	row := q.QueryRowxContext(ctx, mergeStepDateLogQuery, log.ID, log.StepID, log.TargetDate, log.Weight, log.Type, now)
	if err := row.Scan(&log.ID, &log.Weight, &log.CreatedAt, &log.UpdatedAt); err != nil {
		return fmt.Errorf("merge step date log: %w", err)
	}
	return nil
}
