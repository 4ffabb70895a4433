package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

// DefaultTimelineFanout bounds concurrent channel resolutions per request.
const DefaultTimelineFanout = 4

type timelineCatalog interface {
	FindCompanyByName(ctx context.Context, name string) (*models.Company, error)
	ListUnits(ctx context.Context, companyID int64) ([]models.RecruitmentUnit, error)
	ListChannelsByCompany(ctx context.Context, companyID int64) ([]models.RecruitmentChannel, error)
	ListStepsByChannel(ctx context.Context, channelID int64) ([]models.RecruitmentStep, error)
}

type observationReader interface {
	ListByStepIDs(ctx context.Context, stepIDs []int64) ([]models.StepDateLog, error)
	CountObservedSteps(ctx context.Context, channelIDs []int64) (map[int64]int, error)
}

type timelineCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TimelineServiceParams groups the collaborators of TimelineService.
type TimelineServiceParams struct {
	Catalog      timelineCatalog
	Observations observationReader
	Resolver     *DateResolver
	Cache        timelineCache
	CacheTTL     time.Duration
	Metrics      *MetricsService
	Fanout       int
	Logger       *zap.Logger
}

// TimelineService assembles resolved step dates into per-unit timelines and
// keyword lead-time statistics.
type TimelineService struct {
	catalog      timelineCatalog
	observations observationReader
	resolver     *DateResolver
	cache        timelineCache
	cacheTTL     time.Duration
	metrics      *MetricsService
	fanout       int
	group        singleflight.Group
	logger       *zap.Logger
}

// NewTimelineService constructs the service.
func NewTimelineService(params TimelineServiceParams) *TimelineService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Resolver == nil {
		params.Resolver = NewDateResolver(DateResolverConfig{OfficialBonus: DefaultOfficialBonus})
	}
	if params.Fanout <= 0 {
		params.Fanout = DefaultTimelineFanout
	}
	return &TimelineService{
		catalog:      params.Catalog,
		observations: params.Observations,
		resolver:     params.Resolver,
		cache:        params.Cache,
		cacheTTL:     params.CacheTTL,
		metrics:      params.Metrics,
		fanout:       params.Fanout,
		logger:       params.Logger,
	}
}

// Timeline returns the representative timeline of every unit of a company.
// An unknown company yields an empty list.
func (s *TimelineService) Timeline(ctx context.Context, companyName string) (*dto.TimelineResponse, error) {
	resp := &dto.TimelineResponse{Company: strings.TrimSpace(companyName), Units: []models.UnitTimeline{}}
	company, err := s.company(ctx, companyName)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return resp, nil
	}
	resp.Company = company.Name

	key := TimelineCacheKey(company.ID)
	var cached []models.UnitTimeline
	if s.cacheGet(ctx, key, &cached) {
		resp.Units = cached
		resp.Cached = true
		return resp, nil
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		units, err := s.buildTimeline(ctx, company.ID)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, units)
		return units, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build timeline")
	}
	resp.Units = value.([]models.UnitTimeline)
	return resp, nil
}

// KeywordLeadTime summarises the day gap between steps named like keyword and
// their predecessors across all channels of a company.
func (s *TimelineService) KeywordLeadTime(ctx context.Context, companyName, keyword string) (*dto.LeadTimeResponse, error) {
	normalized := NormalizeStepKeyword(keyword)
	if normalized == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "keyword is required")
	}
	resp := &dto.LeadTimeResponse{Company: strings.TrimSpace(companyName), Keyword: normalized}
	company, err := s.company(ctx, companyName)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return resp, nil
	}
	resp.Company = company.Name

	key := LeadTimeCacheKey(company.ID, normalized)
	var cached models.LeadTime
	if s.cacheGet(ctx, key, &cached) {
		resp.LeadTime = cached
		resp.Cached = true
		return resp, nil
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		diffs, err := s.keywordDiffs(ctx, company.ID, normalized)
		if err != nil {
			return nil, err
		}
		stats := SummarizeLeadTimes(diffs)
		s.cacheSet(ctx, key, stats)
		return stats, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute lead time")
	}
	resp.LeadTime = value.(models.LeadTime)
	return resp, nil
}

func (s *TimelineService) company(ctx context.Context, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "company is required")
	}
	company, err := s.catalog.FindCompanyByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve company")
	}
	return company, nil
}

func (s *TimelineService) buildTimeline(ctx context.Context, companyID int64) ([]models.UnitTimeline, error) {
	units, err := s.catalog.ListUnits(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return []models.UnitTimeline{}, nil
	}
	channels, err := s.catalog.ListChannelsByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	channelIDs := make([]int64, len(channels))
	for i, ch := range channels {
		channelIDs[i] = ch.ID
	}
	observed, err := s.observations.CountObservedSteps(ctx, channelIDs)
	if err != nil {
		return nil, err
	}

	byUnit := make(map[int64][]models.RecruitmentChannel, len(units))
	for _, ch := range channels {
		byUnit[ch.UnitID] = append(byUnit[ch.UnitID], ch)
	}

	results := make([]*models.UnitTimeline, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, unit := range units {
		i, unit := i, unit
		channel, ok := RepresentativeChannel(byUnit[unit.ID], observed)
		if !ok {
			continue
		}
		g.Go(func() error {
			res, err := s.resolveChannel(gctx, channel.ID)
			if err != nil {
				return fmt.Errorf("resolve channel %d: %w", channel.ID, err)
			}
			if len(res.Steps) == 0 {
				return nil
			}
			results[i] = &models.UnitTimeline{
				UnitID:      unit.ID,
				Category:    unit.Category,
				ChannelID:   channel.ID,
				ChannelType: channel.Type,
				Year:        channel.Year,
				Steps:       timelineEntries(res),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timelines := make([]models.UnitTimeline, 0, len(units))
	for _, t := range results {
		if t != nil {
			timelines = append(timelines, *t)
		}
	}
	return DropShadowedIntegrated(timelines), nil
}

func (s *TimelineService) keywordDiffs(ctx context.Context, companyID int64, keyword string) ([]int, error) {
	channels, err := s.catalog.ListChannelsByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	perChannel := make([][]int, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, channel := range channels {
		i, channel := i, channel
		g.Go(func() error {
			steps, err := s.catalog.ListStepsByChannel(gctx, channel.ID)
			if err != nil {
				return fmt.Errorf("list steps of channel %d: %w", channel.ID, err)
			}
			if len(steps) < 2 {
				return nil
			}
			res, err := s.resolve(gctx, steps)
			if err != nil {
				return fmt.Errorf("resolve channel %d: %w", channel.ID, err)
			}
			for idx, step := range res.Steps {
				if idx == 0 || step.Step.PrevStepID == nil || step.DayDiff == nil {
					continue
				}
				if NormalizeStepKeyword(step.Step.Name) == keyword {
					perChannel[i] = append(perChannel[i], *step.DayDiff)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var diffs []int
	for _, d := range perChannel {
		diffs = append(diffs, d...)
	}
	return diffs, nil
}

func (s *TimelineService) resolveChannel(ctx context.Context, channelID int64) (Resolution, error) {
	steps, err := s.catalog.ListStepsByChannel(ctx, channelID)
	if err != nil {
		return Resolution{}, err
	}
	if len(steps) == 0 {
		return Resolution{}, nil
	}
	return s.resolve(ctx, steps)
}

func (s *TimelineService) resolve(ctx context.Context, steps []models.RecruitmentStep) (Resolution, error) {
	ids := make([]int64, len(steps))
	for i, st := range steps {
		ids[i] = st.ID
	}
	logs, err := s.observations.ListByStepIDs(ctx, ids)
	if err != nil {
		return Resolution{}, err
	}
	res := s.resolver.Resolve(steps, logs)

	withLogs := make(map[int64]struct{}, len(logs))
	for _, l := range logs {
		withLogs[l.StepID] = struct{}{}
	}
	unresolved := 0
	for _, st := range res.Steps {
		if _, ok := withLogs[st.Step.ID]; ok && st.Date == nil {
			unresolved++
		}
	}
	s.metrics.ObserveResolution(res.Passes(), unresolved)
	return res, nil
}

func (s *TimelineService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		return false
	}
	return hit
}

func (s *TimelineService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Debug("timeline cache write skipped", zap.String("key", key), zap.Error(err))
	}
}

// RepresentativeChannel picks the channel with the most observed steps, then
// the later year, then the larger id.
func RepresentativeChannel(channels []models.RecruitmentChannel, observed map[int64]int) (models.RecruitmentChannel, bool) {
	if len(channels) == 0 {
		return models.RecruitmentChannel{}, false
	}
	best := channels[0]
	for _, ch := range channels[1:] {
		switch {
		case observed[ch.ID] != observed[best.ID]:
			if observed[ch.ID] > observed[best.ID] {
				best = ch
			}
		case ch.YearValue() != best.YearValue():
			if ch.YearValue() > best.YearValue() {
				best = ch
			}
		case ch.ID > best.ID:
			best = ch
		}
	}
	return best, true
}

type channelGroup struct {
	typ  models.ChannelType
	year int
}

// DropShadowedIntegrated removes INTEGRATED unit timelines when a unit with a
// specific category shares the same channel type and year.
func DropShadowedIntegrated(timelines []models.UnitTimeline) []models.UnitTimeline {
	specific := make(map[channelGroup]struct{})
	for _, t := range timelines {
		if t.Category != models.UnitCategoryIntegrated {
			specific[groupOf(t)] = struct{}{}
		}
	}
	out := make([]models.UnitTimeline, 0, len(timelines))
	for _, t := range timelines {
		if t.Category == models.UnitCategoryIntegrated {
			if _, shadowed := specific[groupOf(t)]; shadowed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func groupOf(t models.UnitTimeline) channelGroup {
	g := channelGroup{typ: t.ChannelType}
	if t.Year != nil {
		g.year = *t.Year
	}
	return g
}

// NormalizeStepKeyword lower-cases s and strips all whitespace.
func NormalizeStepKeyword(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// SummarizeLeadTimes sorts diffs and reports median (upper middle for even
// counts), min and max. Empty input yields all nils.
func SummarizeLeadTimes(diffs []int) models.LeadTime {
	if len(diffs) == 0 {
		return models.LeadTime{}
	}
	sorted := append([]int(nil), diffs...)
	sort.Ints(sorted)
	median, lo, hi := sorted[len(sorted)/2], sorted[0], sorted[len(sorted)-1]
	return models.LeadTime{Median: &median, Min: &lo, Max: &hi, Samples: len(sorted)}
}

func timelineEntries(res Resolution) []models.TimelineEntry {
	entries := make([]models.TimelineEntry, len(res.Steps))
	for i, st := range res.Steps {
		entry := models.TimelineEntry{
			StepID:     st.Step.ID,
			StepName:   st.Step.Name,
			DayDiff:    st.DayDiff,
			PrevStepID: st.Step.PrevStepID,
		}
		if st.Date != nil {
			formatted := st.Date.Format(reportDateLayout)
			entry.Date = &formatted
		}
		entries[i] = entry
	}
	return entries
}
