package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/dashboard/commands"
	"github.com/goliatone/go-adboard/components/dashboard/queries"
	"github.com/goliatone/go-adboard/components/wizard"
	"github.com/goliatone/go-adboard/pkg/statsapi"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func newTestServer(t *testing.T) (*httptest.Server, *statsapi.MockClient) {
	t.Helper()
	client := statsapi.NewMockClient(statsapi.MockData{
		Summary:  dashboard.Summary{Clicks: 42},
		Profiles: []wizard.Profile{{Login: "agency-1"}},
	})
	broadcast := dashboard.NewBroadcastHook()
	session, err := dashboard.NewSession(dashboard.SessionOptions{
		Stats:       client,
		Projects:    client,
		PoolSource:  client,
		Clock:       fixedClock(time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)),
		RefreshHook: broadcast,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(session.Close)
	store, err := wizard.New(wizard.Options{API: client, CampaignStats: client})
	if err != nil {
		t.Fatalf("wizard.New: %v", err)
	}
	validator := dashboard.NewJSONSchemaValidator()
	coordinator := session.Coordinator()

	api := &Handlers{
		UpdateFilters: commands.NewUpdateFiltersCommand(session, validator, nil),
		RefreshStats:  commands.NewRefreshStatsCommand(session, nil),
		StartWizard:   commands.NewStartWizardCommand(store, nil),
		WizardStep:    commands.NewWizardStepCommand(store, nil),
		WizardSelect:  commands.NewWizardSelectCommand(store, nil),
		Finish:        commands.NewFinishConnectionCommand(store, nil),
		Snapshot:      queries.NewStatsSnapshotQuery(coordinator),
		Filters:       queries.NewFiltersQuery(session.Filters()),
		Pool:          queries.NewCampaignPoolQuery(coordinator),
		Projects:      queries.NewProjectsQuery(coordinator),
		Wizard:        queries.NewWizardStateQuery(store),
	}
	server := httptest.NewServer(Routes(api, broadcast, RouteConfig{}))
	t.Cleanup(server.Close)
	return server, client
}

func doJSON(t *testing.T, method, url, body string, target any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestRoutesFilterChangeRefetchesStats(t *testing.T) {
	server, client := newTestServer(t)

	var filters dashboard.FilterSet
	if code := doJSON(t, http.MethodPatch, server.URL+"/filters", `{"channel":"vk","period":"7"}`, &filters); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if filters.Channel != dashboard.ChannelVK || filters.Period != dashboard.Period7 {
		t.Fatalf("unexpected filters %+v", filters)
	}

	var snapshot dashboard.StatsSnapshot
	if code := doJSON(t, http.MethodGet, server.URL+"/stats?settled=true", "", &snapshot); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if snapshot.Summary.Clicks != 42 || snapshot.Loading {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if client.Calls(statsapi.OpSummary) != 1 {
		t.Fatalf("expected one summary read, got %d", client.Calls(statsapi.OpSummary))
	}

	if code := doJSON(t, http.MethodPatch, server.URL+"/filters", `{"start_date":"2024-06-10"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for half range, got %d", code)
	}
}

func TestRoutesRefreshSurfacesStatsOutage(t *testing.T) {
	server, client := newTestServer(t)
	client.Fail(statsapi.OpSummary, dashboard.ErrNetwork)
	client.Fail(statsapi.OpDynamics, dashboard.ErrNetwork)

	var body map[string]string
	if code := doJSON(t, http.MethodPost, server.URL+"/stats/refresh", "", &body); code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
	if body["error"] == "" {
		t.Fatalf("expected error body")
	}
}

func TestRoutesWizardStart(t *testing.T) {
	server, _ := newTestServer(t)

	var view queries.WizardView
	if code := doJSON(t, http.MethodPost, server.URL+"/wizard/start", `{"integration_id":"int-1"}`, &view); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if view.State.IntegrationID != "int-1" || len(view.State.Profiles) != 1 {
		t.Fatalf("unexpected wizard view %+v", view.State)
	}

	if code := doJSON(t, http.MethodPost, server.URL+"/wizard/finish", "", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty selection, got %d", code)
	}
}

func TestRoutesHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	if code := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}
