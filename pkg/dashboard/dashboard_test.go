package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	core "github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/wizard"
	"github.com/goliatone/go-adboard/pkg/config"
	"github.com/goliatone/go-adboard/pkg/statsapi"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestAppMountLoadsEverything(t *testing.T) {
	project := core.Project{ID: uuid.New(), Name: "Acme"}
	backend := statsapi.NewMockClient(statsapi.MockData{
		Summary:  core.Summary{Clicks: 5},
		Projects: []core.Project{project},
	})
	app, err := New(Options{
		Config:  config.Default(),
		Backend: backend,
		Clock:   fixedClock(time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Mount(context.Background()))
	snapshot := app.Session.Coordinator().Snapshot()
	assert.Equal(t, int64(5), snapshot.Summary.Clicks)
	assert.Equal(t, []core.Project{project}, app.Session.Coordinator().Projects().Projects)
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.Events().WithLabelValues(core.EventProjectsLoaded)))

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme")
}

type capturedEvents struct {
	mu     sync.Mutex
	events []core.StateEvent
}

func (c *capturedEvents) PublishStateEvent(_ context.Context, channel string, event core.StateEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if channel == "adboard" {
		c.events = append(c.events, event)
	}
	return nil
}

func (c *capturedEvents) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestAppForwardsStatsToNotifications(t *testing.T) {
	captured := &capturedEvents{}
	app, err := New(Options{
		Config:        config.Default(),
		Backend:       statsapi.NewMockClient(statsapi.MockData{}),
		Notifications: captured,
		Clock:         fixedClock(time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Mount(context.Background()))
	kinds := captured.kinds()
	assert.Contains(t, kinds, core.KindStats)
	assert.NotContains(t, kinds, core.KindProjects)
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(Options{Config: config.Default()})
	assert.Error(t, err)
}

func TestLogNotifierReportsToasts(t *testing.T) {
	observed, logs := observer.New(zap.InfoLevel)
	n := LogNotifier{Logger: zap.New(observed)}
	ctx := context.Background()
	n.Success(ctx, "ok")
	n.Warning(ctx, "careful")
	n.Navigate(ctx, wizard.DefaultDonePath)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "careful", entries[1].Message)
	assert.Equal(t, wizard.DefaultDonePath, entries[2].ContextMap()["path"])
}
