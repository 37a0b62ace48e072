package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Stats read names, in commit-independent but stable reporting order.
const (
	ReadSummary   = "summary"
	ReadDynamics  = "dynamics"
	ReadTop       = "top_entities"
	ReadCampaigns = "campaigns"
)

var statsReads = []string{ReadSummary, ReadDynamics, ReadTop, ReadCampaigns}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	Filters     *FilterStore
	Stats       StatsSource
	Projects    ProjectSource
	Pool        *CampaignPoolResolver
	RefreshHook RefreshHook
	Telemetry   Telemetry
	Translator  TranslationService
	Logger      *zap.Logger
	Locale      string
}

// Coordinator issues stats, pool and project reads in response to filter
// changes and commits their results. Each logical query carries its own
// generation counter; a result only commits while its generation is current.
type Coordinator struct {
	filters    *FilterStore
	stats      StatsSource
	projects   ProjectSource
	pool       *CampaignPoolResolver
	hook       RefreshHook
	telemetry  Telemetry
	translator TranslationService
	logger     *zap.Logger
	locale     string

	flight singleflight.Group

	mu          sync.RWMutex
	statsGen    uint64
	poolGen     uint64
	projectsGen uint64
	snapshot    StatsSnapshot
	poolState   PoolState
	projState   ProjectsState

	inflight sync.WaitGroup
	detach   func()
}

// NewCoordinator validates options and builds a coordinator. It does not
// subscribe to the filter store; call Attach for that.
func NewCoordinator(opts CoordinatorOptions) (*Coordinator, error) {
	if opts.Filters == nil {
		return nil, errMissingFilterStore
	}
	if opts.Stats == nil {
		return nil, errMissingStatsSource
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	return &Coordinator{
		filters:    opts.Filters,
		stats:      opts.Stats,
		projects:   opts.Projects,
		pool:       opts.Pool,
		hook:       opts.RefreshHook,
		telemetry:  normalizeTelemetry(opts.Telemetry),
		translator: opts.Translator,
		logger:     opts.Logger.Named("coordinator"),
		locale:     opts.Locale,
	}, nil
}

// Attach registers the coordinator as a filter observer. Calling it twice is a no-op.
func (c *Coordinator) Attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detach != nil {
		return
	}
	c.detach = c.filters.Subscribe(c.OnFilterChanged)
}

// Detach stops observing the filter store.
func (c *Coordinator) Detach() {
	c.mu.Lock()
	detach := c.detach
	c.detach = nil
	c.mu.Unlock()
	if detach != nil {
		detach()
	}
}

// FetchPlan is the work a filter change requires.
type FetchPlan struct {
	Pool           bool
	Stats          bool
	ResetCampaigns bool
}

func (p FetchPlan) merge(other FetchPlan) FetchPlan {
	return FetchPlan{
		Pool:           p.Pool || other.Pool,
		Stats:          p.Stats || other.Stats,
		ResetCampaigns: p.ResetCampaigns || other.ResetCampaigns,
	}
}

// triggerMatrix maps each changed dimension to the work it causes. Period
// changes are covered by the date range they produce.
var triggerMatrix = []struct {
	field FilterField
	plan  FetchPlan
}{
	{FieldProject, FetchPlan{Pool: true, Stats: true, ResetCampaigns: true}},
	{FieldChannel, FetchPlan{Pool: true, Stats: true, ResetCampaigns: true}},
	{FieldDateRange, FetchPlan{Pool: true, Stats: true}},
	{FieldCampaigns, FetchPlan{Stats: true}},
}

// PlanFor resolves the trigger matrix for a change. A dimension assigned for
// the first time does not reset the campaign selection, and neither does a
// change that sets campaigns explicitly in the same update.
func PlanFor(change FilterChange) FetchPlan {
	var plan FetchPlan
	for _, row := range triggerMatrix {
		if !change.Has(row.field) {
			continue
		}
		step := row.plan
		if step.ResetCampaigns && change.FirstAssignment&row.field != 0 {
			step.ResetCampaigns = false
		}
		plan = plan.merge(step)
	}
	if change.Has(FieldCampaigns) {
		plan.ResetCampaigns = false
	}
	return plan
}

// OnFilterChanged dispatches a filter change through the trigger matrix. The
// campaign reset runs before any fetch is issued so the new stats query
// already reflects it. Fetches run in the background; use Wait to join them.
func (c *Coordinator) OnFilterChanged(ctx context.Context, change FilterChange) {
	plan := PlanFor(change)
	if plan.ResetCampaigns && c.filters.clearCampaigns() {
		c.logger.Debug("campaign selection reset", zap.Uint8("fields", uint8(change.Fields)))
		c.telemetry.Record(ctx, EventCampaignsReset, map[string]any{"fields": uint8(change.Fields)})
	}
	c.publish(ctx, StateEvent{Kind: KindFilters})
	if plan.Pool {
		c.launch(ctx, "pool", c.FetchCampaignPool)
	}
	if plan.Stats {
		c.launch(ctx, "stats", c.FetchStats)
	}
}

// Refresh fetches pool and stats for the current filters and waits for both.
func (c *Coordinator) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.FetchCampaignPool(ctx) })
	g.Go(func() error { return c.FetchStats(ctx) })
	return g.Wait()
}

// Wait blocks until every background fetch has settled.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

func (c *Coordinator) launch(ctx context.Context, name string, fetch func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := fetch(ctx); err != nil {
			c.logger.Debug("background fetch settled with error", zap.String("fetch", name), zap.Error(err))
		}
	}()
}

// FetchStats runs the four stats reads in parallel and commits each field as
// it settles. It returns ErrStatsUnavailable when summary and dynamics both
// failed; other read failures are logged and listed in the snapshot only.
func (c *Coordinator) FetchStats(ctx context.Context) error {
	query := c.filters.Filters().StatsQuery()
	key := query.Values().Encode()

	c.mu.Lock()
	c.statsGen++
	gen := c.statsGen
	c.snapshot.Generation = gen
	c.snapshot.Loading = true
	c.mu.Unlock()

	var (
		failMu   sync.Mutex
		failures = map[string]error{}
	)
	fail := func(read string, err error) {
		failMu.Lock()
		failures[read] = err
		failMu.Unlock()
		c.logger.Warn("stats read failed",
			zap.String("read", read),
			zap.Uint64("generation", gen),
			zap.Error(err),
		)
		c.telemetry.Record(ctx, EventStatsReadFailed, map[string]any{"read": read, "generation": gen})
	}

	var g errgroup.Group
	g.Go(func() error {
		summary, err := share(ctx, &c.flight, ReadSummary+"?"+key, func(ctx context.Context) (Summary, error) {
			return c.stats.Summary(ctx, query)
		})
		if err != nil {
			fail(ReadSummary, err)
			return nil
		}
		c.commitStats(ctx, gen, ReadSummary, func(s *StatsSnapshot) { s.Summary = summary })
		return nil
	})
	g.Go(func() error {
		dynamics, err := share(ctx, &c.flight, ReadDynamics+"?"+key, func(ctx context.Context) (Dynamics, error) {
			return c.stats.Dynamics(ctx, query)
		})
		if err != nil {
			fail(ReadDynamics, err)
			return nil
		}
		c.commitStats(ctx, gen, ReadDynamics, func(s *StatsSnapshot) { s.Dynamics = dynamics })
		return nil
	})
	g.Go(func() error {
		top, err := share(ctx, &c.flight, ReadTop, func(ctx context.Context) ([]TopEntity, error) {
			return c.stats.TopEntities(ctx)
		})
		if err != nil {
			fail(ReadTop, err)
			return nil
		}
		c.commitStats(ctx, gen, ReadTop, func(s *StatsSnapshot) { s.TopEntities = top })
		return nil
	})
	g.Go(func() error {
		rows, err := share(ctx, &c.flight, ReadCampaigns+"?"+key, func(ctx context.Context) ([]CampaignRow, error) {
			return c.stats.CampaignBreakdown(ctx, query)
		})
		if err != nil {
			fail(ReadCampaigns, err)
			return nil
		}
		c.commitStats(ctx, gen, ReadCampaigns, func(s *StatsSnapshot) { s.Campaigns = rows })
		return nil
	})
	_ = g.Wait()

	return c.finishStats(ctx, gen, failures)
}

func (c *Coordinator) commitStats(ctx context.Context, gen uint64, read string, apply func(*StatsSnapshot)) {
	c.mu.Lock()
	if gen != c.statsGen {
		current := c.statsGen
		c.mu.Unlock()
		c.logger.Debug("discarding stale stats result",
			zap.String("read", read),
			zap.Uint64("generation", gen),
			zap.Uint64("current", current),
		)
		c.telemetry.Record(ctx, EventStatsStale, map[string]any{"read": read, "generation": gen})
		return
	}
	apply(&c.snapshot)
	c.mu.Unlock()
	c.publish(ctx, StateEvent{Kind: KindStats, Generation: gen, Reason: read})
}

func (c *Coordinator) finishStats(ctx context.Context, gen uint64, failures map[string]error) error {
	if err := ctx.Err(); err != nil {
		// Abandoned by the caller: keep the last committed error state.
		c.mu.Lock()
		if gen == c.statsGen {
			c.snapshot.Loading = false
		}
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	var (
		errs   []error
		failed []string
	)
	for _, read := range statsReads {
		if err := failures[read]; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", read, err))
			failed = append(failed, read)
		}
	}
	critical := failures[ReadSummary] != nil && failures[ReadDynamics] != nil

	var result error
	if critical {
		result = fmt.Errorf("%w: %w", ErrStatsUnavailable, errors.Join(errs...))
	} else if len(errs) > 0 {
		c.logger.Warn("partial statistics",
			zap.Uint64("generation", gen),
			zap.Error(fmt.Errorf("%w: %w", ErrPartialAggregate, errors.Join(errs...))),
		)
	}

	c.mu.Lock()
	if gen != c.statsGen {
		c.mu.Unlock()
		return result
	}
	c.snapshot.Loading = false
	c.snapshot.FailedReads = failed
	if critical {
		c.snapshot.Err = result
		c.snapshot.ErrorMessage = Translate(ctx, c.translator, MsgStatsUnavailable, c.locale)
	} else {
		c.snapshot.Err = nil
		c.snapshot.ErrorMessage = ""
	}
	c.mu.Unlock()

	c.telemetry.Record(ctx, EventStatsCommitted, map[string]any{
		"generation": gen,
		"failed":     failed,
		"critical":   critical,
	})
	c.publish(ctx, StateEvent{Kind: KindStats, Generation: gen, Reason: ReasonSettled})
	return result
}

// FetchCampaignPool refreshes the campaign pool for the current project,
// channel and date range. On failure the previous pool is kept when it
// belongs to the same project.
func (c *Coordinator) FetchCampaignPool(ctx context.Context) error {
	if c.pool == nil {
		return errMissingPoolSource
	}
	filters := c.filters.Filters()
	query := filters.PoolQuery()

	c.mu.Lock()
	c.poolGen++
	gen := c.poolGen
	c.poolState.Generation = gen
	c.poolState.Loading = true
	c.mu.Unlock()

	campaigns, err := share(ctx, &c.flight, "pool?"+query.Values().Encode(), func(ctx context.Context) ([]Campaign, error) {
		return c.pool.ResolvePool(ctx, query.ProjectID, query.Channel, query.DateRange)
	})
	if err != nil {
		err = fmt.Errorf("dashboard: resolve campaign pool: %w", err)
	}

	c.mu.Lock()
	if gen != c.poolGen {
		current := c.poolGen
		c.mu.Unlock()
		c.logger.Debug("discarding stale campaign pool",
			zap.Uint64("generation", gen),
			zap.Uint64("current", current),
		)
		c.telemetry.Record(ctx, EventPoolStale, map[string]any{"generation": gen})
		return err
	}
	c.poolState.Loading = false
	if err != nil {
		if c.poolState.ProjectID != query.ProjectID {
			c.poolState.Campaigns = nil
		}
		c.poolState.Err = err
	} else {
		c.poolState.Campaigns = campaigns
		c.poolState.Err = nil
	}
	c.poolState.ProjectID = query.ProjectID
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("campaign pool read failed", zap.Uint64("generation", gen), zap.Error(err))
	}
	c.telemetry.Record(ctx, EventPoolCommitted, map[string]any{
		"generation": gen,
		"campaigns":  len(campaigns),
		"failed":     err != nil,
	})
	c.publish(ctx, StateEvent{Kind: KindPool, Generation: gen})
	return err
}

// FetchProjects loads the project directory.
func (c *Coordinator) FetchProjects(ctx context.Context) ([]Project, error) {
	if c.projects == nil {
		return nil, errMissingProjectSource
	}
	c.mu.Lock()
	c.projectsGen++
	gen := c.projectsGen
	c.projState.Generation = gen
	c.projState.Loading = true
	c.mu.Unlock()

	projects, err := share(ctx, &c.flight, "projects", func(ctx context.Context) ([]Project, error) {
		return c.projects.ListProjects(ctx)
	})
	if err != nil {
		err = fmt.Errorf("dashboard: list projects: %w", err)
	}

	c.mu.Lock()
	if gen != c.projectsGen {
		c.mu.Unlock()
		return projects, err
	}
	c.projState.Loading = false
	if err != nil {
		c.projState.Err = err
	} else {
		c.projState.Projects = projects
		c.projState.Err = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("project directory read failed", zap.Error(err))
		return nil, err
	}
	c.telemetry.Record(ctx, EventProjectsLoaded, map[string]any{"generation": gen, "projects": len(projects)})
	c.publish(ctx, StateEvent{Kind: KindProjects, Generation: gen})
	return append([]Project(nil), projects...), nil
}

// Snapshot returns a copy of the committed stats.
func (c *Coordinator) Snapshot() StatsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.clone()
}

// Pool returns a copy of the committed campaign pool.
func (c *Coordinator) Pool() PoolState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.poolState
	out.Campaigns = append([]Campaign(nil), c.poolState.Campaigns...)
	return out
}

// Projects returns a copy of the committed project directory.
func (c *Coordinator) Projects() ProjectsState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.projState
	out.Projects = append([]Project(nil), c.projState.Projects...)
	return out
}

// HasProject reports whether id is present in the committed directory.
func (c *Coordinator) HasProject(id uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, project := range c.projState.Projects {
		if project.ID == id {
			return true
		}
	}
	return false
}

// Filters exposes the store the coordinator observes.
func (c *Coordinator) Filters() *FilterStore { return c.filters }

func (c *Coordinator) publish(ctx context.Context, event StateEvent) {
	if c.hook == nil {
		return
	}
	if err := c.hook.StateUpdated(ctx, event); err != nil {
		c.logger.Debug("refresh hook failed", zap.String("kind", event.Kind), zap.Error(err))
	}
}

// share de-duplicates identical in-flight reads. Every caller still commits
// the shared result against its own generation. The shared read outlives the
// caller that started it, so one caller leaving does not fail the others.
func share[T any](ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(T)
		return value, nil
	}
}
