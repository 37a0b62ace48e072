package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-adboard/components/dashboard"
)

// SnapshotInput reads the committed statistics.
type SnapshotInput struct {
	// Settled waits for in-flight fetches before reading.
	Settled bool
}

type snapshotService interface {
	Snapshot() dashboard.StatsSnapshot
	Wait()
}

// StatsSnapshotQuery returns a copy of the committed statistics snapshot.
type StatsSnapshotQuery struct {
	service snapshotService
}

// NewStatsSnapshotQuery builds the query.
func NewStatsSnapshotQuery(service snapshotService) *StatsSnapshotQuery {
	return &StatsSnapshotQuery{service: service}
}

var _ gocommand.Querier[SnapshotInput, dashboard.StatsSnapshot] = (*StatsSnapshotQuery)(nil)

// Query returns the snapshot.
func (q *StatsSnapshotQuery) Query(_ context.Context, input SnapshotInput) (dashboard.StatsSnapshot, error) {
	if input.Settled {
		q.service.Wait()
	}
	return q.service.Snapshot(), nil
}

type filtersReader interface {
	Filters() dashboard.FilterSet
}

// FiltersQuery returns the current filter set.
type FiltersQuery struct {
	store filtersReader
}

// NewFiltersQuery builds the query.
func NewFiltersQuery(store filtersReader) *FiltersQuery {
	return &FiltersQuery{store: store}
}

var _ gocommand.Querier[struct{}, dashboard.FilterSet] = (*FiltersQuery)(nil)

func (q *FiltersQuery) Query(context.Context, struct{}) (dashboard.FilterSet, error) {
	return q.store.Filters(), nil
}

type poolReader interface {
	Pool() dashboard.PoolState
}

// CampaignPoolQuery returns the resolved campaign pool.
type CampaignPoolQuery struct {
	service poolReader
}

// NewCampaignPoolQuery builds the query.
func NewCampaignPoolQuery(service poolReader) *CampaignPoolQuery {
	return &CampaignPoolQuery{service: service}
}

var _ gocommand.Querier[struct{}, dashboard.PoolState] = (*CampaignPoolQuery)(nil)

func (q *CampaignPoolQuery) Query(context.Context, struct{}) (dashboard.PoolState, error) {
	return q.service.Pool(), nil
}

type projectsReader interface {
	Projects() dashboard.ProjectsState
}

// ProjectsQuery returns the project directory.
type ProjectsQuery struct {
	service projectsReader
}

// NewProjectsQuery builds the query.
func NewProjectsQuery(service projectsReader) *ProjectsQuery {
	return &ProjectsQuery{service: service}
}

var _ gocommand.Querier[struct{}, dashboard.ProjectsState] = (*ProjectsQuery)(nil)

func (q *ProjectsQuery) Query(context.Context, struct{}) (dashboard.ProjectsState, error) {
	return q.service.Projects(), nil
}
