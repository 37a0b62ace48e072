package dashboard

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ettle/strcase"
	"github.com/google/uuid"
)

// Channel identifies an ad platform used as a filter dimension.
type Channel string

const (
	ChannelAll    Channel = "all"
	ChannelYandex Channel = "yandex"
	ChannelVK     Channel = "vk"
)

// NormalizeChannel lower-snakes user input ("Yandex", " VK ") into a channel id.
func NormalizeChannel(raw string) Channel {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return Channel(strcase.ToSnake(raw))
}

// Period is a trailing-window preset expressed in days, or PeriodCustom.
type Period string

const (
	Period7      Period = "7"
	Period14     Period = "14"
	Period30     Period = "30"
	Period90     Period = "90"
	PeriodCustom Period = "custom"
)

// DefaultPeriod is applied when a store is created.
const DefaultPeriod = Period14

// Presets lists the trailing-window periods a store accepts.
var Presets = []Period{Period7, Period14, Period30, Period90}

// Days returns the number of days covered by a known preset.
func (p Period) Days() (int, bool) {
	if !slices.Contains(Presets, p) {
		return 0, false
	}
	n, err := strconv.Atoi(string(p))
	if err != nil {
		return 0, false
	}
	return n, true
}

// DateRange is an inclusive calendar window. Both ends are midnight in the store location.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days in the inclusive window.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24+0.5) + 1
}

// Equal compares calendar dates.
func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// TrailingRange returns [today-(days-1), today]: a 14-day window includes today.
func TrailingRange(today time.Time, days int) DateRange {
	end := dayOf(today)
	return DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// FilterSet holds the orthogonal filter dimensions. A nil ProjectID means "all
// projects"; an empty CampaignIDs means "do not filter by campaign".
type FilterSet struct {
	Channel     Channel   `json:"channel"`
	Period      Period    `json:"period"`
	DateRange   DateRange `json:"date_range"`
	ProjectID   uuid.UUID `json:"project_id"`
	CampaignIDs []string  `json:"campaign_ids"`
}

func (f FilterSet) clone() FilterSet {
	out := f
	out.CampaignIDs = append([]string(nil), f.CampaignIDs...)
	return out
}

// StatsQuery derives the stats read filters.
func (f FilterSet) StatsQuery() StatsQuery {
	return StatsQuery{
		DateRange:   f.DateRange,
		Channel:     f.Channel,
		ProjectID:   f.ProjectID,
		CampaignIDs: append([]string(nil), f.CampaignIDs...),
	}
}

// PoolQuery derives the campaign pool scope; the campaign selection is deliberately absent.
func (f FilterSet) PoolQuery() PoolQuery {
	return PoolQuery{ProjectID: f.ProjectID, Channel: f.Channel, DateRange: f.DateRange}
}

// FilterField is a bit set of filter dimensions.
type FilterField uint8

const (
	FieldChannel FilterField = 1 << iota
	FieldPeriod
	FieldDateRange
	FieldProject
	FieldCampaigns
)

// FilterChange is the diff produced by an effective mutation.
type FilterChange struct {
	Previous FilterSet
	Current  FilterSet
	Fields   FilterField
	// FirstAssignment marks a project assigned for the first time from the
	// unset state. The channel starts at ChannelAll and is never unset.
	FirstAssignment FilterField
}

// Has reports whether any of the given dimensions changed.
func (c FilterChange) Has(fields FilterField) bool {
	return c.Fields&fields != 0
}

// Empty reports a no-op mutation.
func (c FilterChange) Empty() bool { return c.Fields == 0 }

// FilterObserver receives every effective filter change, in registration order.
type FilterObserver func(ctx context.Context, change FilterChange)

// FilterUpdate applies several dimensions as one change. Nil fields are left untouched.
type FilterUpdate struct {
	Channel     *Channel
	Period      *Period
	DateRange   *DateRange
	ProjectID   *uuid.UUID
	CampaignIDs *[]string
}

// FilterStoreOptions configures a FilterStore.
type FilterStoreOptions struct {
	Clock    Clock
	Location *time.Location
	Channel  Channel
	Period   Period
}

// FilterStore holds the dashboard filters for one session. The UI layer writes
// user-driven fields; the coordinator only clears the campaign selection.
type FilterStore struct {
	mu    sync.RWMutex
	clock Clock
	loc   *time.Location
	state FilterSet

	projectAssigned bool

	obsMu     sync.RWMutex
	observers map[int]FilterObserver
	order     []int
	nextObs   int
}

// NewFilterStore builds a store with a trailing window ending today.
func NewFilterStore(opts FilterStoreOptions) *FilterStore {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Channel == "" {
		opts.Channel = ChannelAll
	}
	if _, ok := opts.Period.Days(); !ok {
		opts.Period = DefaultPeriod
	}
	s := &FilterStore{
		clock:     opts.Clock,
		loc:       opts.Location,
		observers: map[int]FilterObserver{},
	}
	days, _ := opts.Period.Days()
	s.state = FilterSet{
		Channel:   opts.Channel,
		Period:    opts.Period,
		DateRange: TrailingRange(s.today(), days),
	}
	return s
}

// Filters returns a copy of the current filter set.
func (s *FilterStore) Filters() FilterSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Location returns the calendar location used for "today".
func (s *FilterStore) Location() *time.Location { return s.loc }

// Today returns midnight of the current day in the store location.
func (s *FilterStore) Today() time.Time { return s.today() }

func (s *FilterStore) today() time.Time {
	return dayOf(s.clock.Now().In(s.loc))
}

// Subscribe registers an observer and returns its cancel func.
func (s *FilterStore) Subscribe(observer FilterObserver) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = observer
	s.order = append(s.order, id)
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
		s.order = slices.DeleteFunc(s.order, func(v int) bool { return v == id })
	}
}

// SetChannel switches the platform filter.
func (s *FilterStore) SetChannel(ctx context.Context, channel Channel) (FilterChange, error) {
	return s.Update(ctx, FilterUpdate{Channel: &channel})
}

// SetPeriod applies a preset. A non-custom preset recomputes the date range;
// PeriodCustom only records the preset and leaves dates to SetDateRange.
func (s *FilterStore) SetPeriod(ctx context.Context, period Period) (FilterChange, error) {
	return s.Update(ctx, FilterUpdate{Period: &period})
}

// SetDateRange sets explicit dates and switches the period to custom.
// Out-of-order dates are rejected and leave the store unchanged.
func (s *FilterStore) SetDateRange(ctx context.Context, start, end time.Time) (FilterChange, error) {
	rng := DateRange{Start: start, End: end}
	return s.Update(ctx, FilterUpdate{DateRange: &rng})
}

// SetProject selects a project; uuid.Nil selects all projects.
func (s *FilterStore) SetProject(ctx context.Context, id uuid.UUID) (FilterChange, error) {
	return s.Update(ctx, FilterUpdate{ProjectID: &id})
}

// SetCampaigns replaces the campaign selection. An empty list removes the restriction.
func (s *FilterStore) SetCampaigns(ctx context.Context, ids []string) (FilterChange, error) {
	return s.Update(ctx, FilterUpdate{CampaignIDs: &ids})
}

// ToggleCampaign adds or removes one campaign from the selection.
func (s *FilterStore) ToggleCampaign(ctx context.Context, id string) (FilterChange, error) {
	current := s.Filters().CampaignIDs
	if slices.Contains(current, id) {
		current = slices.DeleteFunc(current, func(v string) bool { return v == id })
	} else {
		current = append(current, id)
	}
	return s.Update(ctx, FilterUpdate{CampaignIDs: &current})
}

// Update applies all provided dimensions atomically and notifies observers once.
func (s *FilterStore) Update(ctx context.Context, update FilterUpdate) (FilterChange, error) {
	s.mu.Lock()
	next := s.state.clone()
	var firstAssign FilterField

	if update.Channel != nil {
		channel := *update.Channel
		if channel == "" {
			s.mu.Unlock()
			return FilterChange{}, errEmptyChannel
		}
		next.Channel = channel
	}

	if update.DateRange != nil {
		rng := *update.DateRange
		if rng.Start.IsZero() || rng.End.IsZero() {
			s.mu.Unlock()
			return FilterChange{}, errMissingDate
		}
		rng = DateRange{Start: calendarDay(rng.Start, s.loc), End: calendarDay(rng.End, s.loc)}
		if rng.Start.After(rng.End) {
			s.mu.Unlock()
			return FilterChange{}, errInvalidDateRange
		}
		next.DateRange = rng
		next.Period = PeriodCustom
	}

	if update.Period != nil {
		period := *update.Period
		if period == PeriodCustom {
			next.Period = PeriodCustom
		} else {
			days, ok := period.Days()
			if !ok {
				s.mu.Unlock()
				return FilterChange{}, errUnknownPeriod
			}
			next.Period = period
			next.DateRange = TrailingRange(s.today(), days)
		}
	}

	if update.ProjectID != nil {
		id := *update.ProjectID
		if id != next.ProjectID && id != uuid.Nil && !s.projectAssigned {
			firstAssign |= FieldProject
		}
		next.ProjectID = id
	}

	if update.CampaignIDs != nil {
		next.CampaignIDs = normalizeIDs(*update.CampaignIDs)
	}

	change := diffFilters(s.state, next)
	change.FirstAssignment = firstAssign & change.Fields
	if change.Has(FieldProject) && next.ProjectID != uuid.Nil {
		s.projectAssigned = true
	}
	s.state = next
	s.mu.Unlock()

	if !change.Empty() {
		s.notify(ctx, change)
	}
	return change, nil
}

// clearCampaigns drops the campaign selection without notifying observers.
// The caller is already reacting to the change that invalidated the selection.
func (s *FilterStore) clearCampaigns() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.CampaignIDs) == 0 {
		return false
	}
	s.state.CampaignIDs = nil
	return true
}

func (s *FilterStore) notify(ctx context.Context, change FilterChange) {
	s.obsMu.RLock()
	observers := make([]FilterObserver, 0, len(s.order))
	for _, id := range s.order {
		observers = append(observers, s.observers[id])
	}
	s.obsMu.RUnlock()
	for _, observer := range observers {
		observer(ctx, change)
	}
}

func diffFilters(prev, next FilterSet) FilterChange {
	change := FilterChange{Previous: prev.clone(), Current: next.clone()}
	if prev.Channel != next.Channel {
		change.Fields |= FieldChannel
	}
	if prev.Period != next.Period {
		change.Fields |= FieldPeriod
	}
	if !prev.DateRange.Equal(next.DateRange) {
		change.Fields |= FieldDateRange
	}
	if prev.ProjectID != next.ProjectID {
		change.Fields |= FieldProject
	}
	if !slices.Equal(prev.CampaignIDs, next.CampaignIDs) {
		change.Fields |= FieldCampaigns
	}
	return change
}

func normalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseDate reads a YYYY-MM-DD date in the store location.
func (s *FilterStore) ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, ValidationError("invalid date %q", raw)
	}
	return t, nil
}

// calendarDay keeps the calendar date of t and pins it to midnight in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
