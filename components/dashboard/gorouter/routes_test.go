package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/dashboard/commands"
	"github.com/goliatone/go-adboard/components/dashboard/httpapi"
	"github.com/goliatone/go-adboard/components/dashboard/queries"
	"github.com/goliatone/go-adboard/components/wizard"
)

func TestRegisterValidatesConfig(t *testing.T) {
	server := router.NewHTTPServer()
	if err := Register(server.Router(), Config{}); err == nil {
		t.Fatalf("expected error when handlers are missing")
	}
}

func TestRegisterServesEndpoints(t *testing.T) {
	update := &stubCommander[commands.UpdateFiltersInput]{}
	filters := &stubQuerier[struct{}, dashboard.FilterSet]{out: dashboard.FilterSet{Channel: dashboard.ChannelVK}}
	snapshot := &stubQuerier[queries.SnapshotInput, dashboard.StatsSnapshot]{}
	finish := &stubCommander[commands.FinishConnectionInput]{err: wizard.ErrNotStarted}
	view := &stubQuerier[struct{}, queries.WizardView]{}
	api := &httpapi.Handlers{
		UpdateFilters: update,
		Filters:       filters,
		Snapshot:      snapshot,
		Finish:        finish,
		Wizard:        view,
	}

	server := router.NewHTTPServer()
	if err := Register(server.Router(), Config{API: api}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	ts := httptest.NewServer(server.WrappedRouter())
	defer ts.Close()

	var got dashboard.FilterSet
	if code := send(t, http.MethodPatch, ts.URL+"/api/filters", `{"channel":"vk"}`, &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if update.last.Channel == nil || *update.last.Channel != "vk" {
		t.Fatalf("expected channel propagation, got %+v", update.last)
	}
	if got.Channel != dashboard.ChannelVK {
		t.Fatalf("expected filters in response, got %+v", got)
	}

	if code := send(t, http.MethodPatch, ts.URL+"/api/filters", `{"platform":"vk"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", code)
	}
	if update.calls != 1 {
		t.Fatalf("rejected body must not reach the command, got %d calls", update.calls)
	}

	if code := send(t, http.MethodGet, ts.URL+"/api/stats?settled=true", "", nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !snapshot.last.Settled {
		t.Fatalf("expected settled query to reach the querier")
	}

	if code := send(t, http.MethodPost, ts.URL+"/api/wizard/finish", "", nil); code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if code := send(t, http.MethodGet, ts.URL+"/api/healthz", "", nil); code != http.StatusOK {
		t.Fatalf("expected health check, got %d", code)
	}
}

func TestRegisterHonorsCustomRoutes(t *testing.T) {
	view := &stubQuerier[struct{}, queries.WizardView]{out: queries.WizardView{State: wizard.State{IntegrationID: "int-1"}}}
	server := router.NewHTTPServer()
	err := Register(server.Router(), Config{
		API:      &httpapi.Handlers{Wizard: view},
		BasePath: "/v2",
		Routes:   httpapi.RouteConfig{Wizard: "/connect"},
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	ts := httptest.NewServer(server.WrappedRouter())
	defer ts.Close()

	var got queries.WizardView
	if code := send(t, http.MethodGet, ts.URL+"/v2/connect", "", &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got.State.IntegrationID != "int-1" {
		t.Fatalf("unexpected wizard view %+v", got.State)
	}
	if code := send(t, http.MethodGet, ts.URL+"/v2/pool", "", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unconfigured route, got %d", code)
	}
}

// --- Test helpers ---

func send(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

type stubQuerier[I, O any] struct {
	out  O
	last I
}

func (s *stubQuerier[I, O]) Query(ctx context.Context, input I) (O, error) {
	s.last = input
	return s.out, nil
}
