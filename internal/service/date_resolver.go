package service

import (
	"sort"
	"time"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

const (
	// DefaultOfficialBonus is added to the weight of OFFICIAL observations.
	DefaultOfficialBonus = 5
	// DefaultResolverPasses caps constraint relaxation passes.
	DefaultResolverPasses = 5
)

// DateResolverConfig holds the scoring constants of the resolver.
type DateResolverConfig struct {
	OfficialBonus int
	MaxPasses     int
}

// DateResolver picks one representative date per step of a channel such that
// adjacent selections are strictly increasing. It is a bounded heuristic: the
// relaxation runs at most MaxPasses passes and may leave steps unresolved.
type DateResolver struct {
	cfg DateResolverConfig
}

// NewDateResolver constructs a resolver, defaulting invalid constants.
func NewDateResolver(cfg DateResolverConfig) *DateResolver {
	if cfg.OfficialBonus < 0 {
		cfg.OfficialBonus = DefaultOfficialBonus
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = DefaultResolverPasses
	}
	return &DateResolver{cfg: cfg}
}

// DateCandidate is a scored observation for one step.
type DateCandidate struct {
	Date     time.Time
	Score    int
	Official bool
}

// StepResolution is the outcome for a single step.
type StepResolution struct {
	Step    models.RecruitmentStep
	Date    *time.Time
	DayDiff *int
}

// Resolution is the resolver output for an ordered list of steps.
type Resolution struct {
	Steps []StepResolution
	// Changed records, per relaxation pass, whether any selection moved.
	Changed []bool
}

// Passes returns how many relaxation passes ran.
func (r Resolution) Passes() int { return len(r.Changed) }

// DateOf returns the selected date of a step, if resolved.
func (r Resolution) DateOf(stepID int64) *time.Time {
	for _, s := range r.Steps {
		if s.Step.ID == stepID {
			return s.Date
		}
	}
	return nil
}

// Candidates scores and orders the observations of one step: score descending,
// OFFICIAL before REPORT, later date first.
func (r *DateResolver) Candidates(logs []models.StepDateLog) []DateCandidate {
	candidates := make([]DateCandidate, 0, len(logs))
	for _, log := range logs {
		official := log.Type == models.StepDateLogOfficial
		score := log.Weight
		if official {
			score += r.cfg.OfficialBonus
		}
		candidates = append(candidates, DateCandidate{
			Date:     models.StartOfDay(log.TargetDate),
			Score:    score,
			Official: official,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Official != b.Official {
			return a.Official
		}
		return a.Date.After(b.Date)
	})
	return candidates
}

// Resolve selects dates for steps using their observations. Steps are ordered
// by Position; observations for unknown steps are ignored.
func (r *DateResolver) Resolve(steps []models.RecruitmentStep, logs []models.StepDateLog) Resolution {
	ordered := make([]models.RecruitmentStep, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].ID < ordered[j].ID
	})

	byStep := make(map[int64][]models.StepDateLog, len(ordered))
	for _, log := range logs {
		byStep[log.StepID] = append(byStep[log.StepID], log)
	}

	candidates := make([][]DateCandidate, len(ordered))
	selected := make([]*time.Time, len(ordered))
	for i, step := range ordered {
		candidates[i] = r.Candidates(byStep[step.ID])
		if len(candidates[i]) > 0 {
			d := candidates[i][0].Date
			selected[i] = &d
		}
	}

	result := Resolution{}
	for pass := 0; pass < r.cfg.MaxPasses; pass++ {
		changed := false
		for i := range ordered {
			var lower, upper *time.Time
			if i > 0 {
				lower = selected[i-1]
			}
			if i < len(ordered)-1 {
				upper = selected[i+1]
			}
			next := firstWithin(candidates[i], lower, upper)
			if !sameDate(next, selected[i]) {
				selected[i] = next
				changed = true
			}
		}
		result.Changed = append(result.Changed, changed)
		if !changed {
			break
		}
	}

	result.Steps = make([]StepResolution, len(ordered))
	for i, step := range ordered {
		res := StepResolution{Step: step, Date: selected[i]}
		if i > 0 && selected[i] != nil && selected[i-1] != nil {
			if diff := daysBetween(*selected[i-1], *selected[i]); diff >= 0 {
				res.DayDiff = &diff
			}
		}
		result.Steps[i] = res
	}
	return result
}

func firstWithin(candidates []DateCandidate, lower, upper *time.Time) *time.Time {
	for _, c := range candidates {
		if lower != nil && !c.Date.After(*lower) {
			continue
		}
		if upper != nil && !c.Date.Before(*upper) {
			continue
		}
		d := c.Date
		return &d
	}
	return nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func daysBetween(from, to time.Time) int {
	return int(models.StartOfDay(to).Sub(models.StartOfDay(from)) / (24 * time.Hour))
}
