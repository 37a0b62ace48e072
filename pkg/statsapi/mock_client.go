package statsapi

import (
	"context"
	"sync"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/wizard"
	"github.com/google/uuid"
)

// Operation names accepted by MockClient.Fail and MockClient.Calls.
const (
	OpSummary       = "summary"
	OpDynamics      = "dynamics"
	OpTopEntities   = "top_entities"
	OpCampaigns     = "campaigns"
	OpProjects      = "projects"
	OpPool          = "pool"
	OpIntegration   = "integration"
	OpProfiles      = "profiles"
	OpAssignProfile = "assign_profile"
	OpDiscover      = "discover"
	OpCampaignStats = "campaign_stats"
	OpCounters      = "counters"
	OpGoals         = "goals"
	OpCommit        = "commit"
)

// MockData seeds deterministic responses for tests and local demos.
type MockData struct {
	Summary       dashboard.Summary
	Dynamics      dashboard.Dynamics
	TopEntities   []dashboard.TopEntity
	Campaigns     []dashboard.CampaignRow
	Projects      []dashboard.Project
	Pool          map[uuid.UUID][]dashboard.Campaign
	Integration   wizard.Integration
	Profiles      []wizard.Profile
	Discovered    []wizard.Campaign
	CampaignStats map[string]wizard.CampaignStats
	Counters      []wizard.Counter
	Goals         wizard.GoalsResult
}

// MockClient serves MockData and records calls. Errors can be injected per operation.
type MockClient struct {
	mu      sync.RWMutex
	data    MockData
	errs    map[string]error
	calls   map[string]int
	commits []wizard.Selection
}

var (
	_ dashboard.StatsSource        = (*MockClient)(nil)
	_ dashboard.ProjectSource      = (*MockClient)(nil)
	_ dashboard.CampaignPoolSource = (*MockClient)(nil)
	_ wizard.IntegrationAPI        = (*MockClient)(nil)
	_ wizard.CampaignStatsSource   = (*MockClient)(nil)
)

// NewMockClient builds a mock client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data, errs: map[string]error{}, calls: map[string]int{}}
}

// Fail makes op return err; a nil err clears the injection.
func (c *MockClient) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
		return
	}
	c.errs[op] = err
}

// Calls returns how many times op was invoked.
func (c *MockClient) Calls(op string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

// Commits returns the selections received by CommitIntegration.
func (c *MockClient) Commits() []wizard.Selection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]wizard.Selection(nil), c.commits...)
}

func (c *MockClient) enter(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	return c.errs[op]
}

func (c *MockClient) Summary(context.Context, dashboard.StatsQuery) (dashboard.Summary, error) {
	if err := c.enter(OpSummary); err != nil {
		return dashboard.Summary{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Summary, nil
}

func (c *MockClient) Dynamics(context.Context, dashboard.StatsQuery) (dashboard.Dynamics, error) {
	if err := c.enter(OpDynamics); err != nil {
		return dashboard.Dynamics{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.data.Dynamics
	return dashboard.Dynamics{
		Labels: append([]string(nil), d.Labels...),
		Costs:  append([]float64(nil), d.Costs...),
		Clicks: append([]int64(nil), d.Clicks...),
	}, nil
}

func (c *MockClient) TopEntities(context.Context) ([]dashboard.TopEntity, error) {
	if err := c.enter(OpTopEntities); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.TopEntity(nil), c.data.TopEntities...), nil
}

func (c *MockClient) CampaignBreakdown(context.Context, dashboard.StatsQuery) ([]dashboard.CampaignRow, error) {
	if err := c.enter(OpCampaigns); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.CampaignRow(nil), c.data.Campaigns...), nil
}

func (c *MockClient) ListProjects(context.Context) ([]dashboard.Project, error) {
	if err := c.enter(OpProjects); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.Project(nil), c.data.Projects...), nil
}

func (c *MockClient) ResolveCampaignPool(_ context.Context, query dashboard.PoolQuery) ([]dashboard.Campaign, error) {
	if err := c.enter(OpPool); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []dashboard.Campaign
	for _, campaign := range c.data.Pool[query.ProjectID] {
		if query.Channel != dashboard.ChannelAll && campaign.Channel != "" && campaign.Channel != query.Channel {
			continue
		}
		out = append(out, campaign)
	}
	return out, nil
}

func (c *MockClient) GetIntegration(_ context.Context, id string) (wizard.Integration, error) {
	if err := c.enter(OpIntegration); err != nil {
		return wizard.Integration{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.data.Integration
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

func (c *MockClient) ListProfiles(context.Context, string) ([]wizard.Profile, error) {
	if err := c.enter(OpProfiles); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]wizard.Profile(nil), c.data.Profiles...), nil
}

func (c *MockClient) AssignProfile(_ context.Context, _ string, assignment wizard.ProfileAssignment) error {
	if err := c.enter(OpAssignProfile); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Integration.AccountID = assignment.AccountID
	c.data.Integration.AgencyClientLogin = assignment.AgencyClientLogin
	return nil
}

func (c *MockClient) DiscoverCampaigns(context.Context, string) ([]wizard.Campaign, error) {
	if err := c.enter(OpDiscover); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]wizard.Campaign(nil), c.data.Discovered...), nil
}

func (c *MockClient) CampaignStats(context.Context, string, dashboard.DateRange) (map[string]wizard.CampaignStats, error) {
	if err := c.enter(OpCampaignStats); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]wizard.CampaignStats, len(c.data.CampaignStats))
	for id, stats := range c.data.CampaignStats {
		out[id] = stats
	}
	return out, nil
}

func (c *MockClient) ListCounters(context.Context, string, wizard.CounterQuery) ([]wizard.Counter, error) {
	if err := c.enter(OpCounters); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]wizard.Counter(nil), c.data.Counters...), nil
}

func (c *MockClient) ListGoals(context.Context, string, wizard.GoalQuery) (wizard.GoalsResult, error) {
	if err := c.enter(OpGoals); err != nil {
		return wizard.GoalsResult{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return wizard.GoalsResult{
		Goals:   append([]wizard.Goal(nil), c.data.Goals.Goals...),
		Warning: c.data.Goals.Warning,
	}, nil
}

func (c *MockClient) CommitIntegration(_ context.Context, _ string, selection wizard.Selection) error {
	if err := c.enter(OpCommit); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits = append(c.commits, selection)
	return nil
}
