package wizard

import (
	"context"
	"fmt"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/google/uuid"
)

// IntegrationAPI is the backend surface used by the connection wizard.
type IntegrationAPI interface {
	GetIntegration(ctx context.Context, integrationID string) (Integration, error)
	ListProfiles(ctx context.Context, integrationID string) ([]Profile, error)
	AssignProfile(ctx context.Context, integrationID string, assignment ProfileAssignment) error
	// DiscoverCampaigns is a mutating call: the backend may create or update campaign records.
	DiscoverCampaigns(ctx context.Context, integrationID string) ([]Campaign, error)
	ListCounters(ctx context.Context, integrationID string, query CounterQuery) ([]Counter, error)
	ListGoals(ctx context.Context, integrationID string, query GoalQuery) (GoalsResult, error)
	CommitIntegration(ctx context.Context, integrationID string, selection Selection) error
}

// CampaignStatsSource optionally enriches discovered campaigns with statistics.
type CampaignStatsSource interface {
	CampaignStats(ctx context.Context, integrationID string, rng dashboard.DateRange) (map[string]CampaignStats, error)
}

// Notifier is the toast collaborator.
type Notifier interface {
	Success(ctx context.Context, message string)
	Warning(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}

// Navigator moves the user away once the wizard commits.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// Integration is a pending platform connection.
type Integration struct {
	ID                string    `json:"id"`
	Platform          string    `json:"platform"`
	ClientID          uuid.UUID `json:"client_id"`
	ClientName        string    `json:"client_name"`
	AccountID         string    `json:"account_id"`
	AgencyClientLogin string    `json:"agency_client_login"`
}

// Profile is a sub-account reachable through the integration credentials.
type Profile struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// ProfileAssignment binds the integration to a sub-account.
type ProfileAssignment struct {
	AccountID         string `json:"account_id"`
	AgencyClientLogin string `json:"agency_client_login"`
}

// Campaign is a campaign discovered on the source platform.
type Campaign struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ExternalID string         `json:"external_id"`
	State      string         `json:"state"`
	Stats      *CampaignStats `json:"stats,omitempty"`
}

// CampaignStateOn marks a campaign running on the source platform.
const CampaignStateOn = "ON"

// Active reports whether the campaign is running on the platform.
func (c Campaign) Active() bool { return c.State == CampaignStateOn }

// CampaignStats is the optional per-campaign statistics merged into discovery results.
type CampaignStats struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Cost        float64 `json:"cost"`
	Conversions int64   `json:"conversions"`
}

// Counter is a tracking counter attached to the account.
type Counter struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Site string `json:"site,omitempty"`
}

// Goal is a conversion goal defined on a counter.
type Goal struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type,omitempty"`
	ConversionRate float64 `json:"conversion_rate"`
}

// GoalsResult carries goals and an optional backend warning.
type GoalsResult struct {
	Goals   []Goal `json:"goals"`
	Warning string `json:"warning_message,omitempty"`
}

// CounterQuery scopes a counter lookup.
type CounterQuery struct {
	AccountID   string
	CampaignIDs []string
}

// GoalScope names which identifiers a goal lookup was scoped by.
type GoalScope string

const (
	GoalScopeCounters  GoalScope = "counters"
	GoalScopeCampaigns GoalScope = "campaigns"
	GoalScopeNone      GoalScope = "none"
)

// GoalQuery scopes a goal lookup. At most one of CounterIDs and CampaignIDs is set.
type GoalQuery struct {
	DateRange   dashboard.DateRange
	AccountID   string
	CounterIDs  []int64
	CampaignIDs []string
}

// Scope reports which identifiers the query is scoped by.
func (q GoalQuery) Scope() GoalScope {
	switch {
	case len(q.CounterIDs) > 0:
		return GoalScopeCounters
	case len(q.CampaignIDs) > 0:
		return GoalScopeCampaigns
	default:
		return GoalScopeNone
	}
}

// Selection is the final payload committed by FinishConnection.
type Selection struct {
	CampaignIDs   []string `json:"selected_campaign_ids"`
	AllCampaigns  bool     `json:"all_campaigns"`
	CounterIDs    []int64  `json:"selected_counters"`
	PrimaryGoalID *int64   `json:"primary_goal_id"`
	GoalIDs       []int64  `json:"selected_goals"`
	IsActive      bool     `json:"is_active"`
}

// Step is a wizard stage.
type Step int

const (
	StepProfileSelection Step = iota + 1
	StepCampaignDiscovery
	StepGoalSelection
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepProfileSelection:
		return "profile_selection"
	case StepCampaignDiscovery:
		return "campaign_discovery"
	case StepGoalSelection:
		return "goal_selection"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool { return s >= StepProfileSelection && s <= StepReview }

// Status is the wizard lifecycle status.
type Status string

const (
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusCommitted Status = "committed"
)

// Form holds the integration fields edited through the wizard. PrimaryGoalID 0 means unset.
type Form struct {
	Platform          string    `json:"platform"`
	ClientID          uuid.UUID `json:"client_id"`
	ClientName        string    `json:"client_name"`
	AccountID         string    `json:"account_id"`
	AgencyClientLogin string    `json:"agency_client_login"`
	PrimaryGoalID     int64     `json:"primary_goal_id"`
}

// EffectiveAccount is the agency client login when set, else the account id.
// Agency sub-accounts and direct accounts live in separate identifier spaces.
func (f Form) EffectiveAccount() string {
	if f.AgencyClientLogin != "" {
		return f.AgencyClientLogin
	}
	return f.AccountID
}

// Loading tracks in-flight wizard calls.
type Loading struct {
	Integration bool `json:"integration"`
	Profiles    bool `json:"profiles"`
	Campaigns   bool `json:"campaigns"`
	Counters    bool `json:"counters"`
	Goals       bool `json:"goals"`
	Finish      bool `json:"finish"`
}

// State is a snapshot of the wizard.
type State struct {
	IntegrationID string `json:"integration_id"`
	Step          Step   `json:"step"`
	Status        Status `json:"status"`
	Err           error  `json:"-"`
	ErrorMessage  string `json:"error,omitempty"`
	Form          Form   `json:"form"`

	Profiles []Profile `json:"profiles"`

	Campaigns           []Campaign `json:"campaigns"`
	SelectedCampaignIDs []string   `json:"selected_campaign_ids"`
	AllCampaigns        bool       `json:"all_campaigns"`

	Counters           []Counter `json:"counters"`
	SelectedCounterIDs []int64   `json:"selected_counter_ids"`
	AllCounters        bool      `json:"all_counters"`

	Goals           []Goal    `json:"goals"`
	SelectedGoalIDs []int64   `json:"selected_goal_ids"`
	GoalScope       GoalScope `json:"goal_scope,omitempty"`

	Loading Loading `json:"loading"`
}

func (s State) clone() State {
	out := s
	out.Profiles = append([]Profile(nil), s.Profiles...)
	out.Campaigns = append([]Campaign(nil), s.Campaigns...)
	out.SelectedCampaignIDs = append([]string(nil), s.SelectedCampaignIDs...)
	out.Counters = append([]Counter(nil), s.Counters...)
	out.SelectedCounterIDs = append([]int64(nil), s.SelectedCounterIDs...)
	out.Goals = append([]Goal(nil), s.Goals...)
	out.SelectedGoalIDs = append([]int64(nil), s.SelectedGoalIDs...)
	return out
}
