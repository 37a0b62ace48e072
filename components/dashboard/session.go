package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SessionOptions wires a dashboard session.
type SessionOptions struct {
	Stats       StatsSource
	Projects    ProjectSource
	PoolSource  CampaignPoolSource
	Clock       Clock
	Location    *time.Location
	Period      Period
	Preferences PreferenceStore
	UserID      string
	RefreshHook RefreshHook
	Telemetry   Telemetry
	Translator  TranslationService
	Logger      *zap.Logger
	Locale      string
}

// Session owns the filter store and coordinator of one logged-in user. It is
// created once and passed by reference to transports.
type Session struct {
	filters     *FilterStore
	coordinator *Coordinator
	prefs       PreferenceStore
	userID      string
	telemetry   Telemetry
	logger      *zap.Logger
}

// NewSession builds and attaches the engine.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Preferences == nil {
		opts.Preferences = NewInMemoryPreferenceStore()
	}
	filters := NewFilterStore(FilterStoreOptions{
		Clock:    opts.Clock,
		Location: opts.Location,
		Period:   opts.Period,
	})
	var resolver *CampaignPoolResolver
	if opts.PoolSource != nil {
		var err error
		resolver, err = NewCampaignPoolResolver(opts.PoolSource, opts.Logger)
		if err != nil {
			return nil, err
		}
	}
	coordinator, err := NewCoordinator(CoordinatorOptions{
		Filters:     filters,
		Stats:       opts.Stats,
		Projects:    opts.Projects,
		Pool:        resolver,
		RefreshHook: opts.RefreshHook,
		Telemetry:   opts.Telemetry,
		Translator:  opts.Translator,
		Logger:      opts.Logger,
		Locale:      opts.Locale,
	})
	if err != nil {
		return nil, err
	}
	coordinator.Attach()
	return &Session{
		filters:     filters,
		coordinator: coordinator,
		prefs:       opts.Preferences,
		userID:      opts.UserID,
		telemetry:   normalizeTelemetry(opts.Telemetry),
		logger:      opts.Logger.Named("session"),
	}, nil
}

// Filters returns the session filter store.
func (s *Session) Filters() *FilterStore { return s.filters }

// Coordinator returns the session coordinator.
func (s *Session) Coordinator() *Coordinator { return s.coordinator }

// Mount performs the initial load: the remembered project is restored as a
// first assignment, then projects, pool and stats are fetched together.
func (s *Session) Mount(ctx context.Context) error {
	restored := false
	if s.userID != "" {
		id, ok, err := s.prefs.SelectedProject(ctx, s.userID)
		if err != nil {
			s.logger.Warn("load project preference", zap.Error(err))
		} else if ok && id != uuid.Nil {
			change, err := s.filters.SetProject(ctx, id)
			if err != nil {
				return err
			}
			restored = !change.Empty()
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := s.ReloadProjects(ctx)
		return err
	})
	if !restored {
		g.Go(func() error { return s.coordinator.Refresh(ctx) })
	}
	err := g.Wait()
	s.coordinator.Wait()
	return err
}

// SelectProject switches the project filter and remembers the choice.
func (s *Session) SelectProject(ctx context.Context, id uuid.UUID) (FilterChange, error) {
	return s.UpdateFilters(ctx, FilterUpdate{ProjectID: &id})
}

// UpdateFilters applies update atomically. A project change is remembered for
// the session user.
func (s *Session) UpdateFilters(ctx context.Context, update FilterUpdate) (FilterChange, error) {
	change, err := s.filters.Update(ctx, update)
	if err != nil {
		return change, err
	}
	if change.Has(FieldProject) && s.userID != "" {
		id := change.Current.ProjectID
		if err := s.prefs.SaveSelectedProject(ctx, s.userID, id); err != nil {
			s.logger.Warn("save project preference", zap.Error(err))
		}
	}
	return change, nil
}

// ParseDate reads a YYYY-MM-DD date in the session location.
func (s *Session) ParseDate(raw string) (time.Time, error) { return s.filters.ParseDate(raw) }

// Refresh refetches the pool and statistics for the current filters.
func (s *Session) Refresh(ctx context.Context) error { return s.coordinator.Refresh(ctx) }

// ReloadProjects refreshes the directory. A selected project that no longer
// exists in a non-empty directory falls back to all projects.
func (s *Session) ReloadProjects(ctx context.Context) ([]Project, error) {
	projects, err := s.coordinator.FetchProjects(ctx)
	if err != nil {
		return nil, err
	}
	selected := s.filters.Filters().ProjectID
	if selected == uuid.Nil || len(projects) == 0 || s.coordinator.HasProject(selected) {
		return projects, nil
	}
	s.logger.Info("selected project no longer available", zap.Stringer("project_id", selected))
	s.telemetry.Record(ctx, EventProjectFallback, map[string]any{"project_id": selected.String()})
	if _, err := s.SelectProject(ctx, uuid.Nil); err != nil {
		return projects, err
	}
	return projects, nil
}

// Wait joins background fetches.
func (s *Session) Wait() { s.coordinator.Wait() }

// Close detaches the coordinator and waits for in-flight fetches.
func (s *Session) Close() {
	s.coordinator.Detach()
	s.coordinator.Wait()
}
