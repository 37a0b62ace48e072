package queries

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/wizard"
)

type stubSnapshotService struct {
	waits int
}

func (s *stubSnapshotService) Snapshot() dashboard.StatsSnapshot {
	return dashboard.StatsSnapshot{Generation: 3, Summary: dashboard.Summary{Clicks: 9}}
}

func (s *stubSnapshotService) Wait() { s.waits++ }

func TestStatsSnapshotQuery(t *testing.T) {
	service := &stubSnapshotService{}
	query := NewStatsSnapshotQuery(service)

	snapshot, err := query.Query(context.Background(), SnapshotInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if snapshot.Summary.Clicks != 9 || service.waits != 0 {
		t.Fatalf("unexpected snapshot %+v (waits %d)", snapshot, service.waits)
	}

	if _, err := query.Query(context.Background(), SnapshotInput{Settled: true}); err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if service.waits != 1 {
		t.Fatalf("expected settled query to wait")
	}
}

func TestFiltersQueryReadsStore(t *testing.T) {
	store := dashboard.NewFilterStore(dashboard.FilterStoreOptions{Channel: dashboard.ChannelVK})
	filters, err := NewFiltersQuery(store).Query(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if filters.Channel != dashboard.ChannelVK {
		t.Fatalf("expected vk channel, got %s", filters.Channel)
	}
}

type stubDirectory struct {
	project uuid.UUID
}

func (s stubDirectory) Pool() dashboard.PoolState {
	return dashboard.PoolState{ProjectID: s.project, Campaigns: []dashboard.Campaign{{ID: "c-1"}}}
}

func (s stubDirectory) Projects() dashboard.ProjectsState {
	return dashboard.ProjectsState{Projects: []dashboard.Project{{ID: s.project, Name: "Acme"}}}
}

func TestPoolAndProjectsQueries(t *testing.T) {
	directory := stubDirectory{project: uuid.New()}
	pool, err := NewCampaignPoolQuery(directory).Query(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if pool.ProjectID != directory.project || len(pool.Campaigns) != 1 {
		t.Fatalf("unexpected pool %+v", pool)
	}
	projects, err := NewProjectsQuery(directory).Query(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(projects.Projects) != 1 || projects.Projects[0].Name != "Acme" {
		t.Fatalf("unexpected projects %+v", projects)
	}
}

type stubWizardReader struct{}

func (stubWizardReader) State() wizard.State {
	return wizard.State{IntegrationID: "int-1", Step: wizard.StepReview}
}

func (stubWizardReader) Selection() wizard.Selection {
	return wizard.Selection{CampaignIDs: []string{"c-1"}, IsActive: true}
}

func TestWizardStateQuery(t *testing.T) {
	view, err := NewWizardStateQuery(stubWizardReader{}).Query(context.Background(), struct{}{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if view.State.Step != wizard.StepReview || len(view.Selection.CampaignIDs) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
}
