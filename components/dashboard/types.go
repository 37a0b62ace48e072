package dashboard

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatsSource is the backend endpoint set returning aggregated campaign statistics.
// Each read is independent; implementations must be safe for concurrent use.
type StatsSource interface {
	Summary(ctx context.Context, query StatsQuery) (Summary, error)
	Dynamics(ctx context.Context, query StatsQuery) (Dynamics, error)
	TopEntities(ctx context.Context) ([]TopEntity, error)
	CampaignBreakdown(ctx context.Context, query StatsQuery) ([]CampaignRow, error)
}

// ProjectSource lists the projects (advertising clients) owned by the session user.
type ProjectSource interface {
	ListProjects(ctx context.Context) ([]Project, error)
}

// CampaignPoolSource returns every campaign with eligible activity for a project/channel/window.
type CampaignPoolSource interface {
	ResolveCampaignPool(ctx context.Context, query PoolQuery) ([]Campaign, error)
}

// RefreshHook notifies transports (SSE/WebSocket) about committed state.
type RefreshHook interface {
	StateUpdated(ctx context.Context, event StateEvent) error
}

// Clock supplies the current time. Tests pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Project is an advertising client managed within the dashboard.
type Project struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Campaign is a selectable entry of the campaign pool.
type Campaign struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ExternalID string  `json:"external_id,omitempty"`
	Channel    Channel `json:"channel,omitempty"`
	State      string  `json:"state,omitempty"`
}

// Summary aggregates spend and performance over the filtered window.
type Summary struct {
	Expenses    float64 `json:"expenses"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Leads       int64   `json:"leads"`
	CPC         float64 `json:"cpc"`
	CPA         float64 `json:"cpa"`
}

// Dynamics is a time series aligned by date label.
type Dynamics struct {
	Labels []string  `json:"labels"`
	Costs  []float64 `json:"costs"`
	Clicks []int64   `json:"clicks"`
}

// TopEntity is a project ranked by spend.
type TopEntity struct {
	Name       string  `json:"name"`
	Expenses   float64 `json:"expenses"`
	Percentage float64 `json:"percentage"`
}

// CampaignRow is a per-campaign statistics row.
type CampaignRow struct {
	Name        string  `json:"name"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Cost        float64 `json:"cost"`
	Conversions int64   `json:"conversions"`
	CPC         float64 `json:"cpc"`
	CPA         float64 `json:"cpa"`
}

// StatsQuery carries the filters sent with summary, dynamics and breakdown reads.
type StatsQuery struct {
	DateRange   DateRange
	Channel     Channel
	ProjectID   uuid.UUID
	CampaignIDs []string
}

// Values encodes the query using the backend parameter names. An empty campaign
// selection omits campaign_ids entirely: absent means "no restriction", which the
// backend distinguishes from an explicit empty list.
func (q StatsQuery) Values() url.Values {
	v := url.Values{}
	v.Set("start_date", q.DateRange.Start.Format(time.DateOnly))
	v.Set("end_date", q.DateRange.End.Format(time.DateOnly))
	channel := q.Channel
	if channel == "" {
		channel = ChannelAll
	}
	v.Set("platform", string(channel))
	if q.ProjectID != uuid.Nil {
		v.Set("client_id", q.ProjectID.String())
	}
	if len(q.CampaignIDs) > 0 {
		v.Set("campaign_ids", strings.Join(q.CampaignIDs, ","))
	}
	return v
}

// PoolQuery scopes a campaign pool lookup. It never carries the campaign selection.
type PoolQuery struct {
	ProjectID uuid.UUID
	Channel   Channel
	DateRange DateRange
}

// Values encodes the pool query using the backend parameter names.
func (q PoolQuery) Values() url.Values {
	v := url.Values{}
	v.Set("client_id", q.ProjectID.String())
	channel := q.Channel
	if channel == "" {
		channel = ChannelAll
	}
	v.Set("platform", string(channel))
	v.Set("start_date", q.DateRange.Start.Format(time.DateOnly))
	v.Set("end_date", q.DateRange.End.Format(time.DateOnly))
	return v
}

// StatsSnapshot is the displayable statistics state. Fields are committed
// independently, so a partially populated snapshot is valid.
type StatsSnapshot struct {
	Generation   uint64        `json:"generation"`
	Summary      Summary       `json:"summary"`
	Dynamics     Dynamics      `json:"dynamics"`
	TopEntities  []TopEntity   `json:"top_entities"`
	Campaigns    []CampaignRow `json:"campaigns"`
	Loading      bool          `json:"loading"`
	FailedReads  []string      `json:"failed_reads,omitempty"`
	Err          error         `json:"-"`
	ErrorMessage string        `json:"error,omitempty"`
}

func (s StatsSnapshot) clone() StatsSnapshot {
	out := s
	out.Dynamics = Dynamics{
		Labels: append([]string(nil), s.Dynamics.Labels...),
		Costs:  append([]float64(nil), s.Dynamics.Costs...),
		Clicks: append([]int64(nil), s.Dynamics.Clicks...),
	}
	out.TopEntities = append([]TopEntity(nil), s.TopEntities...)
	out.Campaigns = append([]CampaignRow(nil), s.Campaigns...)
	out.FailedReads = append([]string(nil), s.FailedReads...)
	return out
}

// PoolState is the committed campaign pool for the current project/channel/window.
type PoolState struct {
	Generation uint64     `json:"generation"`
	ProjectID  uuid.UUID  `json:"project_id"`
	Campaigns  []Campaign `json:"campaigns"`
	Loading    bool       `json:"loading"`
	Err        error      `json:"-"`
}

// ProjectsState is the committed project directory.
type ProjectsState struct {
	Generation uint64    `json:"generation"`
	Projects   []Project `json:"projects"`
	Loading    bool      `json:"loading"`
	Err        error     `json:"-"`
}

// StateEvent describes a committed change transports might care about.
type StateEvent struct {
	Kind       string `json:"kind"`
	Generation uint64 `json:"generation"`
	Reason     string `json:"reason,omitempty"`
}
