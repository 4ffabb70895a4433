package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

// RecruitmentRepository reads the company → unit → channel → step hierarchy.
type RecruitmentRepository struct {
	db *sqlx.DB
}

// NewRecruitmentRepository constructs the repository.
func NewRecruitmentRepository(db *sqlx.DB) *RecruitmentRepository {
	return &RecruitmentRepository{db: db}
}

const stepColumns = `s.id, s.channel_id, c.company_id, s.name, s.position, s.prev_step_id, s.next_step_id`

// FindCompanyByName matches a company name case-insensitively.
func (r *RecruitmentRepository) FindCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	const query = `SELECT id, name FROM companies WHERE LOWER(name) = LOWER($1) ORDER BY id LIMIT 1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, name); err != nil {
		return nil, err
	}
	return &company, nil
}

// FindUnitByCategory returns the unit of a company with the given category.
func (r *RecruitmentRepository) FindUnitByCategory(ctx context.Context, companyID int64, category string) (*models.RecruitmentUnit, error) {
	const query = `SELECT id, company_id, category FROM recruitment_units WHERE company_id = $1 AND category = $2`
	var unit models.RecruitmentUnit
	if err := r.db.GetContext(ctx, &unit, query, companyID, category); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListUnits returns all units of a company ordered by id.
func (r *RecruitmentRepository) ListUnits(ctx context.Context, companyID int64) ([]models.RecruitmentUnit, error) {
	const query = `SELECT id, company_id, category FROM recruitment_units WHERE company_id = $1 ORDER BY id`
	var units []models.RecruitmentUnit
	if err := r.db.SelectContext(ctx, &units, query, companyID); err != nil {
		return nil, fmt.Errorf("list recruitment units: %w", err)
	}
	return units, nil
}

// ListChannelsByCompany returns every channel of a company ordered by id.
func (r *RecruitmentRepository) ListChannelsByCompany(ctx context.Context, companyID int64) ([]models.RecruitmentChannel, error) {
	const query = `SELECT id, company_id, unit_id, type, year, active FROM recruitment_channels WHERE company_id = $1 ORDER BY id`
	var channels []models.RecruitmentChannel
	if err := r.db.SelectContext(ctx, &channels, query, companyID); err != nil {
		return nil, fmt.Errorf("list recruitment channels: %w", err)
	}
	return channels, nil
}

// FindActiveChannel returns the newest active channel matching the lookup. A nil
// UnitID searches across the whole company; a nil Year ignores the year column.
func (r *RecruitmentRepository) FindActiveChannel(ctx context.Context, lookup models.ChannelLookup) (*models.RecruitmentChannel, error) {
	query := `SELECT id, company_id, unit_id, type, year, active FROM recruitment_channels
	WHERE company_id = $1 AND type = $2 AND active = TRUE`
	args := []interface{}{lookup.CompanyID, lookup.Type}
	if lookup.UnitID != nil {
		args = append(args, *lookup.UnitID)
		query += fmt.Sprintf(" AND unit_id = $%d", len(args))
	}
	if lookup.Year != nil {
		args = append(args, *lookup.Year)
		query += fmt.Sprintf(" AND year = $%d", len(args))
	}
	query += " ORDER BY id DESC LIMIT 1"

	var channel models.RecruitmentChannel
	if err := r.db.GetContext(ctx, &channel, query, args...); err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetStep fetches a step with the id of its owning company.
func (r *RecruitmentRepository) GetStep(ctx context.Context, id int64) (*models.RecruitmentStep, error) {
	query := `SELECT ` + stepColumns + `
	FROM recruitment_steps s JOIN recruitment_channels c ON c.id = s.channel_id
	WHERE s.id = $1`
	var step models.RecruitmentStep
	if err := r.db.GetContext(ctx, &step, query, id); err != nil {
		return nil, err
	}
	return &step, nil
}

// ListStepsByChannel returns the steps of a channel in ordinal order.
func (r *RecruitmentRepository) ListStepsByChannel(ctx context.Context, channelID int64) ([]models.RecruitmentStep, error) {
	query := `SELECT ` + stepColumns + `
	FROM recruitment_steps s JOIN recruitment_channels c ON c.id = s.channel_id
	WHERE s.channel_id = $1
	ORDER BY s.position ASC, s.id ASC`
	var steps []models.RecruitmentStep
	if err := r.db.SelectContext(ctx, &steps, query, channelID); err != nil {
		return nil, fmt.Errorf("list recruitment steps: %w", err)
	}
	return steps, nil
}
