package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"
	router "github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/dashboard/commands"
	"github.com/goliatone/go-adboard/components/dashboard/gorouter"
	"github.com/goliatone/go-adboard/components/dashboard/queries"
	"github.com/goliatone/go-adboard/pkg/config"
	adboard "github.com/goliatone/go-adboard/pkg/dashboard"
	"github.com/goliatone/go-adboard/pkg/statsapi"
)

type cli struct {
	Globals `embed:""`

	Stats     statsCmd     `cmd:"" help:"Print the statistics snapshot for a filter set."`
	Projects  projectsCmd  `cmd:"" help:"List projects."`
	Campaigns campaignsCmd `cmd:"" help:"Print the campaign pool for a project, channel and window."`
	Connect   connectCmd   `cmd:"" help:"Run the integration connection wizard non-interactively."`
	Serve     serveCmd     `cmd:"" help:"Serve the dashboard JSON API, SSE and WebSocket events."`
}

// Globals are flags shared by every command.
type Globals struct {
	Config  string `type:"path" help:"Path to a YAML config file."`
	BaseURL string `name:"base-url" help:"Backend API base URL (overrides config)."`
	Token   string `help:"Bearer token (overrides config)."`
	User    string `help:"User id used for remembered preferences."`
	Mock    bool   `help:"Use built-in demo data instead of the backend."`

	Out io.Writer `kong:"-"`
}

func main() {
	var root cli
	root.Out = os.Stdout
	ctx := kong.Parse(&root,
		kong.Name("adboardctl"),
		kong.Description("Ad analytics dashboard client: filters, statistics and integration setup."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&root.Globals)
	ctx.FatalIfErrorf(err)
}

func (g *Globals) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return config.Config{}, nil, err
	}
	if g.BaseURL != "" {
		cfg.BaseURL = g.BaseURL
	}
	if g.Token != "" {
		cfg.Token = g.Token
	}
	logger, err := cfg.Logger()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func (g *Globals) backend(cfg config.Config, logger *zap.Logger) (adboard.Backend, error) {
	if g.Mock {
		return statsapi.NewMockClient(demoData(time.Now())), nil
	}
	return statsapi.NewHTTPClient(cfg.HTTP(statsapi.NewStaticSession(cfg.Token), logger))
}

func (g *Globals) app(reg prometheus.Registerer) (*adboard.App, config.Config, *zap.Logger, error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	backend, err := g.backend(cfg, logger)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	app, err := adboard.New(adboard.Options{
		Config:     cfg,
		Backend:    backend,
		UserID:     g.User,
		Logger:     logger,
		Registerer: reg,
	})
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return app, cfg, logger, nil
}

func (g *Globals) print(v any) error {
	out := g.Out
	if out == nil {
		out = os.Stdout
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// filterFlags maps CLI flags onto a filter update.
type filterFlags struct {
	Channel  string   `help:"Channel: all, yandex or vk."`
	Period   string   `help:"Preset window in days (7, 14, 30, 90)."`
	From     string   `help:"Custom window start (YYYY-MM-DD); requires --to."`
	To       string   `help:"Custom window end (YYYY-MM-DD); requires --from."`
	Project  string   `help:"Project UUID; empty means all projects."`
	Campaign []string `help:"Campaign id filter (repeatable)."`
}

func (f filterFlags) input() commands.UpdateFiltersInput {
	var input commands.UpdateFiltersInput
	if f.Channel != "" {
		input.Channel = &f.Channel
	}
	if f.Period != "" {
		input.Period = &f.Period
	}
	input.StartDate, input.EndDate = f.From, f.To
	if f.Project != "" {
		input.ProjectID = &f.Project
	}
	if len(f.Campaign) > 0 {
		ids := append([]string(nil), f.Campaign...)
		input.CampaignIDs = &ids
	}
	return input
}

// applyFilters runs the fetches the filter change triggers. Without an
// effective change the statistics are refreshed explicitly.
func applyFilters(ctx context.Context, app *adboard.App, flags filterFlags) error {
	input := flags.input()
	if input != (commands.UpdateFiltersInput{}) {
		if err := app.Handlers.UpdateFilters.Execute(ctx, input); err != nil {
			return err
		}
		app.Session.Wait()
	}
	snapshot := app.Session.Coordinator().Snapshot()
	if snapshot.Generation == 0 {
		return app.Handlers.RefreshStats.Execute(ctx, commands.RefreshStatsInput{})
	}
	return snapshot.Err
}

type statsCmd struct {
	filterFlags `embed:""`
}

func (cmd *statsCmd) Run(g *Globals) error {
	app, _, _, err := g.app(nil)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx := context.Background()
	refreshErr := applyFilters(ctx, app, cmd.filterFlags)
	if refreshErr != nil && !errors.Is(refreshErr, dashboard.ErrStatsUnavailable) {
		return refreshErr
	}
	snapshot, err := app.Handlers.Snapshot.Query(ctx, queries.SnapshotInput{Settled: true})
	if err != nil {
		return err
	}
	if err := g.print(snapshot); err != nil {
		return err
	}
	if refreshErr != nil {
		return fmt.Errorf("adboardctl: %s: %w", snapshot.ErrorMessage, refreshErr)
	}
	return nil
}

type projectsCmd struct{}

func (cmd *projectsCmd) Run(g *Globals) error {
	app, _, _, err := g.app(nil)
	if err != nil {
		return err
	}
	defer app.Close()
	if _, err := app.Session.ReloadProjects(context.Background()); err != nil {
		return err
	}
	state, err := app.Handlers.Projects.Query(context.Background(), struct{}{})
	if err != nil {
		return err
	}
	return g.print(state.Projects)
}

type campaignsCmd struct {
	filterFlags `embed:""`
}

func (cmd *campaignsCmd) Run(g *Globals) error {
	app, _, _, err := g.app(nil)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx := context.Background()
	if input := cmd.input(); input != (commands.UpdateFiltersInput{}) {
		if err := app.Handlers.UpdateFilters.Execute(ctx, input); err != nil {
			return err
		}
		app.Session.Wait()
	}
	if app.Session.Coordinator().Pool().Generation == 0 {
		if err := app.Session.Coordinator().FetchCampaignPool(ctx); err != nil {
			return err
		}
	}
	pool, err := app.Handlers.Pool.Query(ctx, struct{}{})
	if err != nil {
		return err
	}
	return g.print(pool)
}

type connectCmd struct {
	Integration  string   `required:"" help:"Integration id to configure."`
	Profile      string   `help:"Agency sub-account login to bind."`
	Campaign     []string `help:"Campaign ids to import (defaults to active campaigns)."`
	AllCampaigns bool     `name:"all-campaigns" help:"Import every campaign, including future ones."`
	Goal         []string `help:"Goal ids to track (repeatable)."`
	Primary      string   `help:"Primary goal id (defaults to the best converting goal)."`
}

func (cmd *connectCmd) Run(g *Globals) error {
	app, _, _, err := g.app(nil)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx := context.Background()
	h := app.Handlers

	if err := h.StartWizard.Execute(ctx, commands.StartWizardInput{IntegrationID: cmd.Integration}); err != nil {
		return err
	}
	if cmd.Profile != "" {
		if err := h.WizardSelect.Execute(ctx, commands.WizardSelectInput{
			Target: commands.TargetProfile, Action: commands.ActionSelect, IDs: []string{cmd.Profile},
		}); err != nil {
			return err
		}
	}
	if err := h.WizardStep.Execute(ctx, commands.WizardStepInput{Action: commands.ActionNext}); err != nil {
		return err
	}
	if err := cmd.selectCampaigns(ctx, app); err != nil {
		return err
	}
	if err := h.WizardStep.Execute(ctx, commands.WizardStepInput{Action: commands.ActionNext}); err != nil {
		return err
	}
	if len(cmd.Goal) > 0 {
		if err := h.WizardSelect.Execute(ctx, commands.WizardSelectInput{
			Target: commands.TargetGoals, Action: commands.ActionSelect, IDs: cmd.Goal,
		}); err != nil {
			return err
		}
	}
	if cmd.Primary != "" {
		if err := h.WizardSelect.Execute(ctx, commands.WizardSelectInput{
			Target: commands.TargetPrimaryGoal, Action: commands.ActionSelect, IDs: []string{cmd.Primary},
		}); err != nil {
			return err
		}
	}
	if err := h.WizardStep.Execute(ctx, commands.WizardStepInput{Action: commands.ActionNext}); err != nil {
		return err
	}
	selection := app.Wizard.Selection()
	if err := h.Finish.Execute(ctx, commands.FinishConnectionInput{}); err != nil {
		return err
	}
	return g.print(selection)
}

func (cmd *connectCmd) selectCampaigns(ctx context.Context, app *adboard.App) error {
	h := app.Handlers
	if cmd.AllCampaigns {
		return h.WizardSelect.Execute(ctx, commands.WizardSelectInput{
			Target: commands.TargetCampaigns, Action: commands.ActionAll,
		})
	}
	if len(cmd.Campaign) == 0 {
		return nil
	}
	current := app.Wizard.State().SelectedCampaignIDs
	if len(current) > 0 {
		if err := h.WizardSelect.Execute(ctx, commands.WizardSelectInput{
			Target: commands.TargetCampaigns, Action: commands.ActionDeselect, IDs: current,
		}); err != nil {
			return err
		}
	}
	return h.WizardSelect.Execute(ctx, commands.WizardSelectInput{
		Target: commands.TargetCampaigns, Action: commands.ActionSelect, IDs: cmd.Campaign,
	})
}

type serveCmd struct {
	Listen string `help:"Listen address (overrides config)."`
	Engine string `help:"Router serving the JSON API." enum:"chi,go-router" default:"chi"`
}

func (cmd *serveCmd) Run(g *Globals) error {
	reg := prometheus.NewRegistry()
	app, cfg, logger, err := g.app(reg)
	if err != nil {
		return err
	}
	defer app.Close()
	addr := cfg.ListenAddr
	if cmd.Listen != "" {
		addr = cmd.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Mount(ctx); err != nil {
		logger.Warn("initial load failed", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := cmd.mountAPI(r, app); err != nil {
		return err
	}
	server := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (cmd *serveCmd) mountAPI(r chi.Router, app *adboard.App) error {
	if cmd.Engine != "go-router" {
		r.Mount("/api", app.Router())
		return nil
	}
	api := router.NewHTTPServer()
	if err := gorouter.Register(api.Router(), gorouter.Config{
		API:       app.Handlers,
		Broadcast: app.Broadcast,
		BasePath:  "/api",
	}); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}
	r.Get("/api/events", app.Broadcast.ServeSSE)
	r.Handle("/api/*", api.WrappedRouter())
	return nil
}
