package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	"go.uber.org/zap"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/dashboard/commands"
	"github.com/goliatone/go-adboard/components/dashboard/queries"
	"github.com/goliatone/go-adboard/components/wizard"
)

const maxBodyBytes = 1 << 20

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	UpdateFilters gocommand.Commander[commands.UpdateFiltersInput]
	RefreshStats  gocommand.Commander[commands.RefreshStatsInput]
	StartWizard   gocommand.Commander[commands.StartWizardInput]
	WizardStep    gocommand.Commander[commands.WizardStepInput]
	WizardSelect  gocommand.Commander[commands.WizardSelectInput]
	Finish        gocommand.Commander[commands.FinishConnectionInput]

	Snapshot gocommand.Querier[queries.SnapshotInput, dashboard.StatsSnapshot]
	Filters  gocommand.Querier[struct{}, dashboard.FilterSet]
	Pool     gocommand.Querier[struct{}, dashboard.PoolState]
	Projects gocommand.Querier[struct{}, dashboard.ProjectsState]
	Wizard   gocommand.Querier[struct{}, queries.WizardView]

	Logger *zap.Logger
}

// Request carries what an endpoint reads from the transport.
type Request struct {
	Body  []byte
	Query func(name string) string
}

func (r Request) query(name string) string {
	if r.Query == nil {
		return ""
	}
	return r.Query(name)
}

// Response is the status and JSON payload an endpoint answers with.
type Response struct {
	Status  int
	Payload any
}

// Endpoint is one API operation, independent of the router that mounts it.
type Endpoint struct {
	Method string
	Path   string
	Serve  func(ctx context.Context, req Request) Response
}

// Endpoints lists the JSON API under the given route layout. The wizard state
// lives at the wizard prefix itself.
func (h *Handlers) Endpoints(routes RouteConfig) []Endpoint {
	routes = DefaultRouteConfig(routes)
	return []Endpoint{
		{http.MethodGet, routes.Filters, h.getFilters},
		{http.MethodPatch, routes.Filters, h.updateFilters},
		{http.MethodGet, routes.Stats, h.getStats},
		{http.MethodPost, routes.Refresh, h.refreshStats},
		{http.MethodGet, routes.Pool, h.getPool},
		{http.MethodGet, routes.Projects, h.getProjects},
		{http.MethodGet, routes.Wizard, h.getWizard},
		{http.MethodPost, routes.Wizard + "/start", h.startWizard},
		{http.MethodPost, routes.Wizard + "/step", h.wizardStep},
		{http.MethodPost, routes.Wizard + "/select", h.wizardSelect},
		{http.MethodPost, routes.Wizard + "/finish", h.finishConnection},
	}
}

// ServeHTTP adapts an endpoint to net/http.
func (e Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorPayload(err))
		return
	}
	query := r.URL.Query()
	res := e.Serve(r.Context(), Request{Body: body, Query: query.Get})
	writeJSON(w, res.Status, res.Payload)
}

func (h *Handlers) HandleGetFilters(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.getFilters}.ServeHTTP(w, r)
}

// HandleUpdateFilters applies a PATCH and answers with the resulting filters.
func (h *Handlers) HandleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.updateFilters}.ServeHTTP(w, r)
}

// HandleGetStats returns the snapshot; ?settled=true waits for in-flight reads.
func (h *Handlers) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.getStats}.ServeHTTP(w, r)
}

// HandleRefreshStats refetches and answers with the settled snapshot.
func (h *Handlers) HandleRefreshStats(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.refreshStats}.ServeHTTP(w, r)
}

func (h *Handlers) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.getPool}.ServeHTTP(w, r)
}

func (h *Handlers) HandleGetProjects(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.getProjects}.ServeHTTP(w, r)
}

func (h *Handlers) HandleGetWizard(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.getWizard}.ServeHTTP(w, r)
}

func (h *Handlers) HandleStartWizard(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.startWizard}.ServeHTTP(w, r)
}

func (h *Handlers) HandleWizardStep(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.wizardStep}.ServeHTTP(w, r)
}

func (h *Handlers) HandleWizardSelect(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.wizardSelect}.ServeHTTP(w, r)
}

func (h *Handlers) HandleFinishConnection(w http.ResponseWriter, r *http.Request) {
	Endpoint{Serve: h.finishConnection}.ServeHTTP(w, r)
}

func (h *Handlers) getFilters(ctx context.Context, _ Request) Response {
	return respondQuery(ctx, h, h.Filters, struct{}{})
}

func (h *Handlers) updateFilters(ctx context.Context, req Request) Response {
	var payload commands.UpdateFiltersInput
	if res, ok := decode(req.Body, &payload, false); !ok {
		return res
	}
	if err := h.UpdateFilters.Execute(ctx, payload); err != nil {
		return h.respondError(err)
	}
	return respondQuery(ctx, h, h.Filters, struct{}{})
}

func (h *Handlers) getStats(ctx context.Context, req Request) Response {
	input := queries.SnapshotInput{Settled: req.query("settled") == "true"}
	return respondQuery(ctx, h, h.Snapshot, input)
}

func (h *Handlers) refreshStats(ctx context.Context, req Request) Response {
	var payload commands.RefreshStatsInput
	if res, ok := decode(req.Body, &payload, true); !ok {
		return res
	}
	if err := h.RefreshStats.Execute(ctx, payload); err != nil {
		return h.respondError(err)
	}
	return respondQuery(ctx, h, h.Snapshot, queries.SnapshotInput{})
}

func (h *Handlers) getPool(ctx context.Context, _ Request) Response {
	return respondQuery(ctx, h, h.Pool, struct{}{})
}

func (h *Handlers) getProjects(ctx context.Context, _ Request) Response {
	return respondQuery(ctx, h, h.Projects, struct{}{})
}

func (h *Handlers) getWizard(ctx context.Context, _ Request) Response {
	return respondQuery(ctx, h, h.Wizard, struct{}{})
}

func (h *Handlers) startWizard(ctx context.Context, req Request) Response {
	return wizardCommand(ctx, h, req, h.StartWizard, false)
}

func (h *Handlers) wizardStep(ctx context.Context, req Request) Response {
	return wizardCommand(ctx, h, req, h.WizardStep, false)
}

func (h *Handlers) wizardSelect(ctx context.Context, req Request) Response {
	return wizardCommand(ctx, h, req, h.WizardSelect, false)
}

func (h *Handlers) finishConnection(ctx context.Context, req Request) Response {
	return wizardCommand(ctx, h, req, h.Finish, true)
}

func wizardCommand[T any](ctx context.Context, h *Handlers, req Request, cmd gocommand.Commander[T], emptyOK bool) Response {
	var payload T
	if res, ok := decode(req.Body, &payload, emptyOK); !ok {
		return res
	}
	if err := cmd.Execute(ctx, payload); err != nil {
		return h.respondError(err)
	}
	return respondQuery(ctx, h, h.Wizard, struct{}{})
}

func decode(body []byte, target any, emptyOK bool) (Response, bool) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if emptyOK && errors.Is(err, io.EOF) {
			return Response{}, true
		}
		return Response{Status: http.StatusBadRequest, Payload: errorPayload(err)}, false
	}
	return Response{}, true
}

func respondQuery[I, O any](ctx context.Context, h *Handlers, q gocommand.Querier[I, O], input I) Response {
	if q == nil {
		return Response{Status: http.StatusNotFound, Payload: map[string]string{"error": "not configured"}}
	}
	out, err := q.Query(ctx, input)
	if err != nil {
		return h.respondError(err)
	}
	return Response{Status: http.StatusOK, Payload: out}
}

func (h *Handlers) respondError(err error) Response {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	return Response{Status: status, Payload: errorPayload(err)}
}

func errorPayload(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrStatsUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, dashboard.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrNotStarted), errors.Is(err, wizard.ErrStepFailed):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
