package wizard

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ettle/strcase"
	"github.com/goliatone/go-adboard/components/dashboard"
	"go.uber.org/zap"
)

// DefaultPlatform is used until an integration is loaded.
const DefaultPlatform = "YANDEX_DIRECT"

// Defaults applied by New.
const (
	DefaultGoalsLookbackDays = 7
	DefaultDonePath          = "/settings"
)

// Telemetry events.
const (
	EventStarted   = "wizard.started"
	EventStep      = "wizard.step"
	EventFailed    = "wizard.failed"
	EventCommitted = "wizard.committed"
)

// Options configures a Store.
type Options struct {
	API               IntegrationAPI
	CampaignStats     CampaignStatsSource
	Notifier          Notifier
	Navigator         Navigator
	Validator         dashboard.PayloadValidator
	Clock             dashboard.Clock
	Location          *time.Location
	Logger            *zap.Logger
	Telemetry         dashboard.Telemetry
	Translator        dashboard.TranslationService
	Locale            string
	GoalsLookbackDays int
	DonePath          string
}

// Store drives the integration connection wizard for one session. Calls are
// sequential by contract; results that arrive after Start or Reset began a
// new run are dropped.
type Store struct {
	api        IntegrationAPI
	stats      CampaignStatsSource
	notifier   Notifier
	navigator  Navigator
	validator  dashboard.PayloadValidator
	clock      dashboard.Clock
	loc        *time.Location
	logger     *zap.Logger
	telemetry  dashboard.Telemetry
	translator dashboard.TranslationService
	locale     string
	lookback   int
	donePath   string

	mu    sync.RWMutex
	state State
	epoch uint64
}

// New builds a wizard store.
func New(opts Options) (*Store, error) {
	if opts.API == nil {
		return nil, errMissingAPI
	}
	if opts.Clock == nil {
		opts.Clock = dashboard.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = dashboard.TelemetryFunc(func(context.Context, string, map[string]any) {})
	}
	if opts.Locale == "" {
		opts.Locale = dashboard.DefaultLocale
	}
	if opts.GoalsLookbackDays <= 0 {
		opts.GoalsLookbackDays = DefaultGoalsLookbackDays
	}
	if opts.DonePath == "" {
		opts.DonePath = DefaultDonePath
	}
	return &Store{
		api:        opts.API,
		stats:      opts.CampaignStats,
		notifier:   opts.Notifier,
		navigator:  opts.Navigator,
		validator:  dashboard.NormalizeValidator(opts.Validator),
		clock:      opts.Clock,
		loc:        opts.Location,
		logger:     opts.Logger.Named("wizard"),
		telemetry:  opts.Telemetry,
		translator: opts.Translator,
		locale:     opts.Locale,
		lookback:   opts.GoalsLookbackDays,
		donePath:   opts.DonePath,
		state:      initialState(),
	}, nil
}

func initialState() State {
	return State{
		Step:   StepProfileSelection,
		Status: StatusActive,
		Form:   Form{Platform: DefaultPlatform},
	}
}

// NormalizePlatform renders platform ids as SCREAMING_SNAKE ("yandex direct" -> "YANDEX_DIRECT").
func NormalizePlatform(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPlatform
	}
	return strcase.ToSNAKE(raw)
}

// State returns a copy of the wizard state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Reset drops all wizard data and returns to the first step.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = initialState()
}

// Start resets the wizard and loads the integration being connected.
func (s *Store) Start(ctx context.Context, integrationID string) error {
	integrationID = strings.TrimSpace(integrationID)
	if integrationID == "" {
		return invalid("integration id is required")
	}
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.state = initialState()
	s.state.IntegrationID = integrationID
	s.state.Loading.Integration = true
	s.mu.Unlock()

	integration, err := s.api.GetIntegration(ctx, integrationID)
	err = s.settle(ctx, epoch, dashboard.MsgWizardLoadFailed, err, false, func(st *State) {
		st.Loading.Integration = false
	}, func(st *State) {
		st.Form.Platform = NormalizePlatform(integration.Platform)
		st.Form.ClientID = integration.ClientID
		st.Form.ClientName = integration.ClientName
		st.Form.AccountID = integration.AccountID
		st.Form.AgencyClientLogin = integration.AgencyClientLogin
		if st.Form.AgencyClientLogin == "" {
			st.Form.AgencyClientLogin = integration.AccountID
		}
	})
	if err != nil {
		return err
	}
	s.telemetry.Record(ctx, EventStarted, map[string]any{
		"integration_id": integrationID,
		"platform":       NormalizePlatform(integration.Platform),
	})
	return nil
}

// FetchProfiles loads the sub-accounts available to the integration.
func (s *Store) FetchProfiles(ctx context.Context) error {
	id, epoch, err := s.begin(func(st *State) { st.Loading.Profiles = true })
	if err != nil {
		return err
	}
	profiles, err := s.api.ListProfiles(ctx, id)
	return s.settle(ctx, epoch, dashboard.MsgWizardProfilesFailed, err, false, func(st *State) {
		st.Loading.Profiles = false
	}, func(st *State) {
		st.Profiles = profiles
	})
}

// SelectProfile binds the integration to an agency sub-account.
func (s *Store) SelectProfile(ctx context.Context, login string) error {
	login = strings.TrimSpace(login)
	current := s.State()
	if current.IntegrationID == "" {
		return ErrNotStarted
	}
	if login == "" {
		return invalid("profile login is required")
	}
	if len(current.Profiles) > 0 && !slices.ContainsFunc(current.Profiles, func(p Profile) bool { return p.Login == login }) {
		return invalid("unknown profile %q", login)
	}
	_, epoch, err := s.begin(func(st *State) { st.Loading.Profiles = true })
	if err != nil {
		return err
	}
	err = s.api.AssignProfile(ctx, current.IntegrationID, ProfileAssignment{
		AccountID:         current.Form.AccountID,
		AgencyClientLogin: login,
	})
	return s.settle(ctx, epoch, dashboard.MsgWizardProfilesFailed, err, false, func(st *State) {
		st.Loading.Profiles = false
	}, func(st *State) {
		st.Form.AgencyClientLogin = login
	})
}

// FetchCampaigns runs discovery on the platform, merges optional statistics
// and applies the default selection: active campaigns, or every campaign
// when none is active.
func (s *Store) FetchCampaigns(ctx context.Context) error {
	id, epoch, err := s.begin(func(st *State) { st.Loading.Campaigns = true })
	if err != nil {
		return err
	}
	campaigns, err := s.api.DiscoverCampaigns(ctx, id)
	if err == nil && s.stats != nil && len(campaigns) > 0 {
		campaigns = s.mergeCampaignStats(ctx, id, campaigns)
	}
	return s.settle(ctx, epoch, dashboard.MsgWizardCampaignsFailed, err, false, func(st *State) {
		st.Loading.Campaigns = false
	}, func(st *State) {
		st.Campaigns = campaigns
		st.SelectedCampaignIDs = defaultCampaignSelection(campaigns)
		st.AllCampaigns = false
	})
}

func (s *Store) mergeCampaignStats(ctx context.Context, id string, campaigns []Campaign) []Campaign {
	stats, err := s.stats.CampaignStats(ctx, id, s.lookbackRange())
	if err != nil {
		s.logger.Warn("campaign statistics unavailable", zap.String("integration_id", id), zap.Error(err))
		return campaigns
	}
	out := make([]Campaign, len(campaigns))
	for i, campaign := range campaigns {
		if row, ok := stats[campaign.ID]; ok {
			campaign.Stats = &row
		}
		out[i] = campaign
	}
	return out
}

func defaultCampaignSelection(campaigns []Campaign) []string {
	var active, all []string
	for _, campaign := range campaigns {
		all = append(all, campaign.ID)
		if campaign.Active() {
			active = append(active, campaign.ID)
		}
	}
	if len(active) > 0 {
		return active
	}
	return all
}

// FetchCounters loads tracking counters for the effective account and the
// selected campaigns, selecting every counter by default. A failed load
// clears the counters so goals fall back to campaign scope.
func (s *Store) FetchCounters(ctx context.Context) error {
	var query CounterQuery
	id, epoch, err := s.begin(func(st *State) {
		st.Loading.Counters = true
		query = CounterQuery{
			AccountID:   st.Form.EffectiveAccount(),
			CampaignIDs: append([]string(nil), st.SelectedCampaignIDs...),
		}
	})
	if err != nil {
		return err
	}
	counters, err := s.api.ListCounters(ctx, id, query)
	return s.settle(ctx, epoch, dashboard.MsgWizardCountersFailed, err, true, func(st *State) {
		st.Loading.Counters = false
		if err != nil {
			// Counters from an earlier account or campaign set must not scope goals.
			st.Counters = nil
			st.SelectedCounterIDs = nil
			st.AllCounters = false
		}
	}, func(st *State) {
		st.Counters = counters
		st.SelectedCounterIDs = make([]int64, 0, len(counters))
		for _, counter := range counters {
			st.SelectedCounterIDs = append(st.SelectedCounterIDs, counter.ID)
		}
		st.AllCounters = len(counters) > 0
	})
}

// FetchGoals loads goals scoped by selected counters, else selected
// campaigns, else unscoped. When no primary goal is chosen the goal with the
// highest conversion rate becomes primary.
func (s *Store) FetchGoals(ctx context.Context) error {
	var query GoalQuery
	id, epoch, err := s.begin(func(st *State) {
		st.Loading.Goals = true
		query = GoalQuery{
			DateRange: s.lookbackRange(),
			AccountID: st.Form.EffectiveAccount(),
		}
		if len(st.SelectedCounterIDs) > 0 {
			query.CounterIDs = append([]int64(nil), st.SelectedCounterIDs...)
		} else if len(st.SelectedCampaignIDs) > 0 {
			query.CampaignIDs = append([]string(nil), st.SelectedCampaignIDs...)
		}
	})
	if err != nil {
		return err
	}
	result, err := s.api.ListGoals(ctx, id, query)
	if err == nil && result.Warning != "" {
		s.notify(ctx, s.warning, result.Warning)
	}
	return s.settle(ctx, epoch, dashboard.MsgWizardGoalsFailed, err, true, func(st *State) {
		st.Loading.Goals = false
	}, func(st *State) {
		st.Goals = result.Goals
		st.GoalScope = query.Scope()
		st.SelectedGoalIDs = slices.DeleteFunc(st.SelectedGoalIDs, func(id int64) bool {
			return !containsGoal(result.Goals, id)
		})
		if st.Form.PrimaryGoalID != 0 && !containsGoal(result.Goals, st.Form.PrimaryGoalID) {
			st.Form.PrimaryGoalID = 0
		}
		if st.Form.PrimaryGoalID == 0 {
			if best, ok := bestGoal(result.Goals); ok {
				st.Form.PrimaryGoalID = best.ID
			}
		}
		if st.Form.PrimaryGoalID != 0 && !slices.Contains(st.SelectedGoalIDs, st.Form.PrimaryGoalID) {
			st.SelectedGoalIDs = append(st.SelectedGoalIDs, st.Form.PrimaryGoalID)
		}
	})
}

// bestGoal returns the goal with the highest conversion rate; ties keep the first.
func bestGoal(goals []Goal) (Goal, bool) {
	if len(goals) == 0 {
		return Goal{}, false
	}
	best := goals[0]
	for _, goal := range goals[1:] {
		if goal.ConversionRate > best.ConversionRate {
			best = goal
		}
	}
	return best, true
}

func containsGoal(goals []Goal, id int64) bool {
	return slices.ContainsFunc(goals, func(g Goal) bool { return g.ID == id })
}

// ToggleCampaign flips one campaign and clears the all-campaigns flag.
func (s *Store) ToggleCampaign(id string) {
	s.mutate(func(st *State) {
		st.SelectedCampaignIDs = toggle(st.SelectedCampaignIDs, id)
		st.AllCampaigns = false
	})
}

// SelectCampaigns adds campaigns to the selection.
func (s *Store) SelectCampaigns(ids []string) {
	s.mutate(func(st *State) { st.SelectedCampaignIDs = union(st.SelectedCampaignIDs, ids) })
}

// DeselectCampaigns removes campaigns and clears the all-campaigns flag.
func (s *Store) DeselectCampaigns(ids []string) {
	s.mutate(func(st *State) {
		st.SelectedCampaignIDs = without(st.SelectedCampaignIDs, ids)
		st.AllCampaigns = false
	})
}

// SelectAllCampaigns selects every discovered campaign and marks the
// connection as covering all campaigns, including future ones.
func (s *Store) SelectAllCampaigns() {
	s.mutate(func(st *State) {
		st.SelectedCampaignIDs = st.SelectedCampaignIDs[:0]
		for _, campaign := range st.Campaigns {
			st.SelectedCampaignIDs = append(st.SelectedCampaignIDs, campaign.ID)
		}
		st.AllCampaigns = true
	})
}

// ToggleCounter flips one counter and clears the all-counters flag.
func (s *Store) ToggleCounter(id int64) {
	s.mutate(func(st *State) {
		st.SelectedCounterIDs = toggle(st.SelectedCounterIDs, id)
		st.AllCounters = false
	})
}

// SelectCounters adds counters to the selection.
func (s *Store) SelectCounters(ids []int64) {
	s.mutate(func(st *State) { st.SelectedCounterIDs = union(st.SelectedCounterIDs, ids) })
}

// DeselectCounters removes counters and clears the all-counters flag.
func (s *Store) DeselectCounters(ids []int64) {
	s.mutate(func(st *State) {
		st.SelectedCounterIDs = without(st.SelectedCounterIDs, ids)
		st.AllCounters = false
	})
}

// ToggleGoal flips one goal. Deselecting the primary goal clears it.
func (s *Store) ToggleGoal(id int64) {
	s.mutate(func(st *State) {
		st.SelectedGoalIDs = toggle(st.SelectedGoalIDs, id)
		dropOrphanPrimary(st)
	})
}

// SelectGoals adds goals to the selection.
func (s *Store) SelectGoals(ids []int64) {
	s.mutate(func(st *State) { st.SelectedGoalIDs = union(st.SelectedGoalIDs, ids) })
}

// DeselectGoals removes goals. Deselecting the primary goal clears it.
func (s *Store) DeselectGoals(ids []int64) {
	s.mutate(func(st *State) {
		st.SelectedGoalIDs = without(st.SelectedGoalIDs, ids)
		dropOrphanPrimary(st)
	})
}

// SelectPrimaryGoal marks a loaded goal as primary and selects it.
func (s *Store) SelectPrimaryGoal(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !containsGoal(s.state.Goals, id) {
		return invalid("goal %d is not available", id)
	}
	s.state.Form.PrimaryGoalID = id
	if !slices.Contains(s.state.SelectedGoalIDs, id) {
		s.state.SelectedGoalIDs = append(s.state.SelectedGoalIDs, id)
	}
	return nil
}

func dropOrphanPrimary(st *State) {
	if st.Form.PrimaryGoalID != 0 && !slices.Contains(st.SelectedGoalIDs, st.Form.PrimaryGoalID) {
		st.Form.PrimaryGoalID = 0
	}
}

// Next advances one step. A failed step blocks navigation, and leaving
// campaign discovery needs a non-empty selection.
func (s *Store) Next(ctx context.Context) (Step, error) {
	s.mu.Lock()
	st := &s.state
	if err := s.navigable(st); err != nil {
		s.mu.Unlock()
		return st.Step, err
	}
	if st.Step == StepReview {
		s.mu.Unlock()
		return st.Step, invalid("review is the last step")
	}
	if st.Step == StepCampaignDiscovery && len(st.SelectedCampaignIDs) == 0 && !st.AllCampaigns {
		s.mu.Unlock()
		return st.Step, invalid("select at least one campaign")
	}
	st.Step++
	step := st.Step
	s.mu.Unlock()
	s.telemetry.Record(ctx, EventStep, map[string]any{"step": step.String()})
	return step, nil
}

// Back returns to the previous step.
func (s *Store) Back(ctx context.Context) (Step, error) {
	s.mu.Lock()
	st := &s.state
	if st.Step > StepProfileSelection {
		st.Step--
	}
	step := st.Step
	s.mu.Unlock()
	s.telemetry.Record(ctx, EventStep, map[string]any{"step": step.String()})
	return step, nil
}

// GoTo jumps back to an earlier step. Forward moves go through Next.
func (s *Store) GoTo(ctx context.Context, step Step) error {
	if !step.Valid() {
		return invalid("unknown step %d", int(step))
	}
	s.mu.Lock()
	if step > s.state.Step {
		s.mu.Unlock()
		return invalid("cannot skip ahead to %s", step)
	}
	s.state.Step = step
	s.mu.Unlock()
	s.telemetry.Record(ctx, EventStep, map[string]any{"step": step.String()})
	return nil
}

func (s *Store) navigable(st *State) error {
	if st.IntegrationID == "" {
		return ErrNotStarted
	}
	if st.Status == StatusFailed {
		return fmt.Errorf("%w: %w", ErrStepFailed, st.Err)
	}
	return nil
}

// Retry clears a failed status so the step can be re-run.
func (s *Store) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == StatusFailed {
		s.state.Status = StatusActive
		s.state.Err = nil
		s.state.ErrorMessage = ""
	}
}

// Selection builds the commit payload from the current state.
func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectionOf(s.state)
}

func selectionOf(st State) Selection {
	sel := Selection{
		CampaignIDs:  append([]string{}, st.SelectedCampaignIDs...),
		AllCampaigns: st.AllCampaigns,
		CounterIDs:   append([]int64{}, st.SelectedCounterIDs...),
		GoalIDs:      append([]int64{}, st.SelectedGoalIDs...),
		IsActive:     true,
	}
	if st.Form.PrimaryGoalID != 0 {
		primary := st.Form.PrimaryGoalID
		sel.PrimaryGoalID = &primary
	}
	return sel
}

// Validate checks the commit payload schema and the primary goal invariant.
func (s *Store) Validate(sel Selection) error {
	if sel.PrimaryGoalID != nil && !slices.Contains(sel.GoalIDs, *sel.PrimaryGoalID) {
		return invalid("primary goal %d is not among selected goals", *sel.PrimaryGoalID)
	}
	if len(sel.CampaignIDs) == 0 && !sel.AllCampaigns {
		return invalid("no campaigns selected")
	}
	return s.validator.Validate(dashboard.SchemaIntegrationCommit, sel)
}

// FinishConnection commits the selection. On success the wizard resets with
// status Committed and navigates away; on failure state is preserved.
func (s *Store) FinishConnection(ctx context.Context) error {
	s.mu.Lock()
	if s.state.IntegrationID == "" {
		s.mu.Unlock()
		return ErrNotStarted
	}
	id := s.state.IntegrationID
	epoch := s.epoch
	sel := selectionOf(s.state)
	s.mu.Unlock()

	if err := s.Validate(sel); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.Loading.Finish = true
	s.mu.Unlock()

	err := s.api.CommitIntegration(ctx, id, sel)
	if err != nil {
		return s.settle(ctx, epoch, dashboard.MsgWizardCommitFailed, err, false, func(st *State) {
			st.Loading.Finish = false
		}, nil)
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil
	}
	s.epoch++
	s.state = initialState()
	s.state.Status = StatusCommitted
	s.mu.Unlock()

	s.logger.Info("integration committed",
		zap.String("integration_id", id),
		zap.Int("campaigns", len(sel.CampaignIDs)),
		zap.Int("goals", len(sel.GoalIDs)),
	)
	s.telemetry.Record(ctx, EventCommitted, map[string]any{"integration_id": id})
	s.notify(ctx, s.success, s.message(ctx, dashboard.MsgWizardCommitted))
	if s.navigator != nil {
		s.navigator.Navigate(ctx, s.donePath)
	}
	return nil
}

func (s *Store) begin(mark func(*State)) (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IntegrationID == "" {
		return "", 0, ErrNotStarted
	}
	mark(&s.state)
	return s.state.IntegrationID, s.epoch, nil
}

// settle commits a call result. Failures keep previous data, flag the
// wizard as failed and are returned; warn selects a warning toast over an
// error toast.
func (s *Store) settle(ctx context.Context, epoch uint64, msgKey string, err error, warn bool, always func(*State), apply func(*State)) error {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding result from a previous wizard run", zap.Uint64("epoch", epoch))
		return nil
	}
	always(&s.state)
	if err != nil {
		message := s.message(ctx, msgKey)
		s.state.Status = StatusFailed
		s.state.Err = err
		s.state.ErrorMessage = message
		step := s.state.Step
		s.mu.Unlock()

		s.logger.Warn("wizard call failed", zap.String("step", step.String()), zap.String("message", msgKey), zap.Error(err))
		s.telemetry.Record(ctx, EventFailed, map[string]any{"step": step.String(), "message": msgKey})
		if warn {
			s.notify(ctx, s.warning, message)
		} else {
			s.notify(ctx, s.failure, message)
		}
		return err
	}
	if apply != nil {
		apply(&s.state)
	}
	s.state.Status = StatusActive
	s.state.Err = nil
	s.state.ErrorMessage = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *Store) message(ctx context.Context, key string) string {
	return dashboard.Translate(ctx, s.translator, key, s.locale)
}

func (s *Store) lookbackRange() dashboard.DateRange {
	now := s.clock.Now().In(s.loc)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return dashboard.DateRange{Start: end.AddDate(0, 0, -s.lookback), End: end}
}

func (s *Store) notify(ctx context.Context, send func(context.Context, string), message string) {
	if s.notifier == nil || message == "" {
		return
	}
	send(ctx, message)
}

func (s *Store) success(ctx context.Context, msg string) { s.notifier.Success(ctx, msg) }
func (s *Store) warning(ctx context.Context, msg string) { s.notifier.Warning(ctx, msg) }
func (s *Store) failure(ctx context.Context, msg string) { s.notifier.Error(ctx, msg) }

func toggle[T comparable](list []T, id T) []T {
	if slices.Contains(list, id) {
		return slices.DeleteFunc(list, func(v T) bool { return v == id })
	}
	return append(list, id)
}

func union[T comparable](list, ids []T) []T {
	for _, id := range ids {
		if !slices.Contains(list, id) {
			list = append(list, id)
		}
	}
	return list
}

func without[T comparable](list, ids []T) []T {
	return slices.DeleteFunc(list, func(v T) bool { return slices.Contains(ids, v) })
}
