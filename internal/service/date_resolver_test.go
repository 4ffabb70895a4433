package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

func march(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}

func obs(stepID int64, date time.Time, weight int, typ models.StepDateLogType) models.StepDateLog {
	return models.StepDateLog{StepID: stepID, TargetDate: date, Weight: weight, Type: typ}
}

func channelSteps(n int) []models.RecruitmentStep {
	steps := make([]models.RecruitmentStep, n)
	for i := range steps {
		steps[i] = models.RecruitmentStep{ID: int64(i + 1), ChannelID: 1, Name: "step", Position: i + 1}
		if i > 0 {
			prev := int64(i)
			steps[i].PrevStepID = &prev
		}
	}
	return steps
}

func dateOrNil(t *testing.T, res Resolution, stepID int64) string {
	t.Helper()
	d := res.DateOf(stepID)
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}

func TestDateResolverCandidateOrdering(t *testing.T) {
	resolver := NewDateResolver(DateResolverConfig{OfficialBonus: 5, MaxPasses: 5})
	candidates := resolver.Candidates([]models.StepDateLog{
		obs(1, march(1), 6, models.StepDateLogReport),
		obs(1, march(2), 1, models.StepDateLogOfficial),
		obs(1, march(3), 3, models.StepDateLogReport),
		obs(1, march(4), 3, models.StepDateLogReport),
	})

	require.Len(t, candidates, 4)
	// Official 1+5 ties report weight 6 and wins the tie.
	assert.Equal(t, march(2), candidates[0].Date)
	assert.True(t, candidates[0].Official)
	assert.Equal(t, march(1), candidates[1].Date)
	// Equal scores fall back to the later date first.
	assert.Equal(t, march(4), candidates[2].Date)
	assert.Equal(t, march(3), candidates[3].Date)
}

func TestDateResolverConsistentInputSettlesInOnePass(t *testing.T) {
	resolver := NewDateResolver(DateResolverConfig{OfficialBonus: DefaultOfficialBonus})
	res := resolver.Resolve(channelSteps(3), []models.StepDateLog{
		obs(1, march(1), 3, models.StepDateLogReport),
		obs(2, march(10), 2, models.StepDateLogReport),
		obs(3, march(20), 1, models.StepDateLogReport),
	})

	assert.Equal(t, []bool{false}, res.Changed)
	require.Len(t, res.Steps, 3)
	assert.Nil(t, res.Steps[0].DayDiff)
	require.NotNil(t, res.Steps[1].DayDiff)
	assert.Equal(t, 9, *res.Steps[1].DayDiff)
	require.NotNil(t, res.Steps[2].DayDiff)
	assert.Equal(t, 10, *res.Steps[2].DayDiff)
}

func TestDateResolverRelaxesConflictingSelections(t *testing.T) {
	resolver := NewDateResolver(DateResolverConfig{OfficialBonus: DefaultOfficialBonus})
	logs := []models.StepDateLog{
		obs(1, march(10), 5, models.StepDateLogReport),
		obs(1, march(1), 1, models.StepDateLogReport),
		obs(2, march(5), 4, models.StepDateLogReport),
		obs(2, march(15), 2, models.StepDateLogReport),
		obs(3, march(20), 1, models.StepDateLogReport),
	}
	res := resolver.Resolve(channelSteps(3), logs)

	assert.Equal(t, []bool{true, false}, res.Changed)
	assert.Equal(t, "2024-03-01", dateOrNil(t, res, 1))
	assert.Equal(t, "2024-03-05", dateOrNil(t, res, 2))
	assert.Equal(t, "2024-03-20", dateOrNil(t, res, 3))
	assert.Equal(t, 4, *res.Steps[1].DayDiff)
	assert.Equal(t, 15, *res.Steps[2].DayDiff)
}

func TestDateResolverHonoursPassLimit(t *testing.T) {
	resolver := NewDateResolver(DateResolverConfig{OfficialBonus: DefaultOfficialBonus, MaxPasses: 1})
	res := resolver.Resolve(channelSteps(2), []models.StepDateLog{
		obs(1, march(10), 5, models.StepDateLogReport),
		obs(1, march(1), 1, models.StepDateLogReport),
		obs(2, march(5), 4, models.StepDateLogReport),
	})
	assert.Equal(t, 1, res.Passes())
	assert.Equal(t, "2024-03-01", dateOrNil(t, res, 1))
}

func TestDateResolverDropsUnsatisfiableStep(t *testing.T) {
	resolver := NewDateResolver(DateResolverConfig{OfficialBonus: DefaultOfficialBonus})
	res := resolver.Resolve(channelSteps(2), []models.StepDateLog{
		obs(1, march(10), 1, models.StepDateLogReport),
		obs(2, march(5), 1, models.StepDateLogReport),
	})

	assert.Equal(t, "", dateOrNil(t, res, 1))
	assert.Equal(t, "2024-03-05", dateOrNil(t, res, 2))
	assert.Nil(t, res.Steps[1].DayDiff)
}

func TestDateResolverStepsWithoutObservations(t *testing.T) {
	resolver := NewDateResolver(DateResolverConfig{OfficialBonus: DefaultOfficialBonus})
	res := resolver.Resolve(channelSteps(3), []models.StepDateLog{
		obs(1, march(1), 1, models.StepDateLogReport),
		obs(3, march(9), 1, models.StepDateLogReport),
	})

	assert.Equal(t, "2024-03-01", dateOrNil(t, res, 1))
	assert.Equal(t, "", dateOrNil(t, res, 2))
	assert.Equal(t, "2024-03-09", dateOrNil(t, res, 3))
	assert.Nil(t, res.Steps[1].DayDiff)
	assert.Nil(t, res.Steps[2].DayDiff)
}

func TestDateResolverOrdersByPositionNotLinks(t *testing.T) {
	stale := int64(3)
	steps := []models.RecruitmentStep{
		{ID: 3, Position: 3, Name: "offer"},
		{ID: 1, Position: 1, Name: "screening", PrevStepID: &stale},
		{ID: 2, Position: 2, Name: "interview"},
	}
	res := NewDateResolver(DateResolverConfig{}).Resolve(steps, nil)
	require.Len(t, res.Steps, 3)
	for i, s := range res.Steps {
		assert.Equal(t, int64(i+1), s.Step.ID)
		assert.Equal(t, i+1, s.Step.Position)
	}
}

func TestDateResolverMonotonicBoundedAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	resolver := NewDateResolver(DateResolverConfig{OfficialBonus: DefaultOfficialBonus, MaxPasses: DefaultResolverPasses})

	for round := 0; round < 200; round++ {
		steps := channelSteps(2 + rng.Intn(6))
		var logs []models.StepDateLog
		for _, step := range steps {
			for k := rng.Intn(5); k > 0; k-- {
				typ := models.StepDateLogReport
				if rng.Intn(4) == 0 {
					typ = models.StepDateLogOfficial
				}
				logs = append(logs, obs(step.ID, march(1+rng.Intn(28)), 1+rng.Intn(6), typ))
			}
		}

		first := resolver.Resolve(steps, logs)
		second := resolver.Resolve(steps, logs)
		require.LessOrEqual(t, first.Passes(), DefaultResolverPasses)
		require.Equal(t, first, second)

		for i := 1; i < len(first.Steps); i++ {
			prev, cur := first.Steps[i-1].Date, first.Steps[i].Date
			if prev == nil || cur == nil {
				require.Nil(t, first.Steps[i].DayDiff)
				continue
			}
			require.True(t, cur.After(*prev), "round %d step %d not after predecessor", round, i)
			require.Positive(t, *first.Steps[i].DayDiff)
		}
	}
}
