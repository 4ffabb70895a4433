package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

type recruitmentLookup interface {
	FindCompanyByName(ctx context.Context, name string) (*models.Company, error)
	FindUnitByCategory(ctx context.Context, companyID int64, category string) (*models.RecruitmentUnit, error)
	FindActiveChannel(ctx context.Context, lookup models.ChannelLookup) (*models.RecruitmentChannel, error)
	GetStep(ctx context.Context, id int64) (*models.RecruitmentStep, error)
}

// Reasons a pending report cannot be promoted automatically.
const (
	HoldStepUnresolved    = "step unresolved"
	HoldCompanyUnresolved = "company unresolved"
	HoldNoActiveChannel   = "no active channel"
)

// HoldState is the live structural resolution of a report.
type HoldState struct {
	OnHold  bool
	Reason  string
	Company *models.Company
	Unit    *models.RecruitmentUnit
	Channel *models.RecruitmentChannel
}

// IdentifierResolver maps free-text report fields onto the recruitment
// hierarchy. Lookups that find nothing return nil without an error.
type IdentifierResolver struct {
	repo recruitmentLookup
}

// NewIdentifierResolver constructs the resolver.
func NewIdentifierResolver(repo recruitmentLookup) *IdentifierResolver {
	return &IdentifierResolver{repo: repo}
}

// Company resolves a company by case-insensitive exact name.
func (r *IdentifierResolver) Company(ctx context.Context, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	company, err := r.repo.FindCompanyByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve company %q: %w", name, err)
	}
	return company, nil
}

// Unit resolves a unit of a company by category.
func (r *IdentifierResolver) Unit(ctx context.Context, companyID int64, category *string) (*models.RecruitmentUnit, error) {
	if category == nil {
		return nil, nil
	}
	code := models.NormalizeCategory(*category)
	if code == "" {
		return nil, nil
	}
	unit, err := r.repo.FindUnitByCategory(ctx, companyID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve unit %q: %w", code, err)
	}
	return unit, nil
}

// Step fetches a step by id.
func (r *IdentifierResolver) Step(ctx context.Context, id int64) (*models.RecruitmentStep, error) {
	step, err := r.repo.GetStep(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve step %d: %w", id, err)
	}
	return step, nil
}

// Channel finds the active channel for a company, optionally narrowed to a
// unit. YEARLY channels are matched on year as well.
func (r *IdentifierResolver) Channel(ctx context.Context, companyID int64, unit *models.RecruitmentUnit, channelType models.ChannelType, year *int) (*models.RecruitmentChannel, error) {
	lookup := models.ChannelLookup{CompanyID: companyID, Type: channelType}
	if unit != nil {
		unitID := unit.ID
		lookup.UnitID = &unitID
	}
	if channelType == models.ChannelTypeYearly {
		if year == nil {
			return nil, nil
		}
		lookup.Year = year
	}
	channel, err := r.repo.FindActiveChannel(ctx, lookup)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve channel: %w", err)
	}
	return channel, nil
}

// Hold evaluates whether a report can be promoted right now. The company is
// re-resolved by name when the report did not resolve one at intake.
func (r *IdentifierResolver) Hold(ctx context.Context, report *models.StepDateReport) (HoldState, error) {
	var state HoldState
	if _, ok := report.Step.ID(); !ok {
		state.OnHold, state.Reason = true, HoldStepUnresolved
		return state, nil
	}

	if report.CompanyID != nil {
		state.Company = &models.Company{ID: *report.CompanyID, Name: report.CompanyName}
	} else {
		company, err := r.Company(ctx, report.CompanyName)
		if err != nil {
			return state, err
		}
		state.Company = company
	}
	if state.Company == nil {
		state.OnHold, state.Reason = true, HoldCompanyUnresolved
		return state, nil
	}

	unit, err := r.Unit(ctx, state.Company.ID, report.UnitCategory)
	if err != nil {
		return state, err
	}
	state.Unit = unit

	channel, err := r.Channel(ctx, state.Company.ID, unit, report.ChannelType, report.Year())
	if err != nil {
		return state, err
	}
	if channel == nil {
		state.OnHold, state.Reason = true, HoldNoActiveChannel
		return state, nil
	}
	state.Channel = channel
	return state, nil
}
