// Package dashboard wires the filter engine, the connection wizard and their
// HTTP surface behind one constructor.
package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	core "github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/dashboard/commands"
	"github.com/goliatone/go-adboard/components/dashboard/httpapi"
	"github.com/goliatone/go-adboard/components/dashboard/queries"
	"github.com/goliatone/go-adboard/components/wizard"
	"github.com/goliatone/go-adboard/pkg/config"
	"github.com/goliatone/go-adboard/pkg/telemetry"
)

// Session exposes the underlying components/dashboard.Session type.
type Session = core.Session

// SessionOptions re-export for convenience.
type SessionOptions = core.SessionOptions

// NewSession proxies to the internal constructor.
func NewSession(opts SessionOptions) (*Session, error) {
	return core.NewSession(opts)
}

// Backend is everything the engine and the wizard read from the server.
// statsapi.HTTPClient and statsapi.MockClient both satisfy it.
type Backend interface {
	core.StatsSource
	core.ProjectSource
	core.CampaignPoolSource
	wizard.IntegrationAPI
	wizard.CampaignStatsSource
}

// Options configures an App.
type Options struct {
	Config      config.Config
	Backend     Backend
	UserID      string
	Preferences core.PreferenceStore
	Notifier    wizard.Notifier
	Navigator   wizard.Navigator
	// Notifications, when set, also receives committed stats and pool events.
	Notifications core.NotificationsClient
	Logger        *zap.Logger
	// Registerer receives the Prometheus counters; nil keeps them private.
	Registerer prometheus.Registerer
	Clock      core.Clock
}

// App is one user's dashboard: session, wizard, push hub and HTTP handlers.
type App struct {
	Session   *core.Session
	Wizard    *wizard.Store
	Broadcast *core.BroadcastHook
	Handlers  *httpapi.Handlers
	Metrics   *telemetry.Prometheus
	Validator *core.JSONSchemaValidator
}

// New wires an App from configuration and a backend.
func New(opts Options) (*App, error) {
	if opts.Backend == nil {
		return nil, errors.New("dashboard: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: logger}
	}
	if opts.Navigator == nil {
		opts.Navigator = LogNotifier{Logger: logger}
	}
	loc, err := opts.Config.Location()
	if err != nil {
		return nil, err
	}
	metrics, err := telemetry.NewPrometheus("adboard", opts.Registerer)
	if err != nil {
		return nil, err
	}
	broadcast := core.NewBroadcastHook()
	validator := core.NewJSONSchemaValidator()
	hooks := core.RefreshHooks{broadcast}
	if opts.Notifications != nil {
		hooks = append(hooks, &core.NotificationsHook{
			Client:  opts.Notifications,
			Channel: "adboard",
			Kinds:   []string{core.KindStats, core.KindPool},
		})
	}

	session, err := core.NewSession(core.SessionOptions{
		Stats:       opts.Backend,
		Projects:    opts.Backend,
		PoolSource:  opts.Backend,
		Clock:       opts.Clock,
		Location:    loc,
		Period:      opts.Config.DefaultPeriod,
		Preferences: opts.Preferences,
		UserID:      opts.UserID,
		RefreshHook: hooks,
		Telemetry:   metrics,
		Logger:      logger,
		Locale:      opts.Config.Locale,
	})
	if err != nil {
		return nil, err
	}
	store, err := wizard.New(wizard.Options{
		API:           opts.Backend,
		CampaignStats: opts.Backend,
		Notifier:      opts.Notifier,
		Navigator:     opts.Navigator,
		Validator:     validator,
		Clock:         opts.Clock,
		Location:      loc,
		Logger:        logger,
		Telemetry:     metrics,
		Locale:        opts.Config.Locale,
	})
	if err != nil {
		session.Close()
		return nil, err
	}

	coordinator := session.Coordinator()
	handlers := &httpapi.Handlers{
		UpdateFilters: commands.NewUpdateFiltersCommand(session, validator, metrics),
		RefreshStats:  commands.NewRefreshStatsCommand(session, metrics),
		StartWizard:   commands.NewStartWizardCommand(store, metrics),
		WizardStep:    commands.NewWizardStepCommand(store, metrics),
		WizardSelect:  commands.NewWizardSelectCommand(store, metrics),
		Finish:        commands.NewFinishConnectionCommand(store, metrics),
		Snapshot:      queries.NewStatsSnapshotQuery(coordinator),
		Filters:       queries.NewFiltersQuery(session.Filters()),
		Pool:          queries.NewCampaignPoolQuery(coordinator),
		Projects:      queries.NewProjectsQuery(coordinator),
		Wizard:        queries.NewWizardStateQuery(store),
		Logger:        logger,
	}
	return &App{
		Session:   session,
		Wizard:    store,
		Broadcast: broadcast,
		Handlers:  handlers,
		Metrics:   metrics,
		Validator: validator,
	}, nil
}

// Router returns the HTTP API with the default routes.
func (a *App) Router() http.Handler {
	return httpapi.Routes(a.Handlers, a.Broadcast, httpapi.RouteConfig{})
}

// Mount performs the initial load.
func (a *App) Mount(ctx context.Context) error { return a.Session.Mount(ctx) }

// Close stops background work.
func (a *App) Close() { a.Session.Close() }

// LogNotifier reports wizard toasts and navigation through zap.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Success(_ context.Context, message string) {
	n.Logger.Info(message, zap.String("toast", "success"))
}

func (n LogNotifier) Warning(_ context.Context, message string) {
	n.Logger.Warn(message, zap.String("toast", "warning"))
}

func (n LogNotifier) Error(_ context.Context, message string) {
	n.Logger.Error(message, zap.String("toast", "error"))
}

func (n LogNotifier) Navigate(_ context.Context, path string) {
	n.Logger.Info("navigate", zap.String("path", path))
}
