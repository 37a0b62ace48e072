package statsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/wizard"
	"github.com/google/uuid"
)

type projectDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toProjects(items []projectDTO) ([]dashboard.Project, error) {
	out := make([]dashboard.Project, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, fmt.Errorf("statsapi: parse project id %q: %w", item.ID, err)
		}
		out = append(out, dashboard.Project{ID: id, Name: item.Name})
	}
	return out, nil
}

type poolCampaignDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	Platform   string `json:"platform"`
	State      string `json:"state"`
}

func (d poolCampaignDTO) toCampaign() dashboard.Campaign {
	return dashboard.Campaign{
		ID:         d.ID,
		Name:       d.Name,
		ExternalID: d.ExternalID,
		Channel:    dashboard.NormalizeChannel(d.Platform),
		State:      d.State,
	}
}

type integrationDTO struct {
	ID                string `json:"id"`
	Platform          string `json:"platform"`
	ClientID          string `json:"client_id"`
	ClientName        string `json:"client_name"`
	AccountID         string `json:"account_id"`
	AgencyClientLogin string `json:"agency_client_login"`
	Client            *struct {
		Name string `json:"name"`
	} `json:"client,omitempty"`
}

func (d integrationDTO) toIntegration() (wizard.Integration, error) {
	out := wizard.Integration{
		ID:                d.ID,
		Platform:          d.Platform,
		ClientName:        d.ClientName,
		AccountID:         d.AccountID,
		AgencyClientLogin: d.AgencyClientLogin,
	}
	if out.ClientName == "" && d.Client != nil {
		out.ClientName = d.Client.Name
	}
	if d.ClientID != "" {
		id, err := uuid.Parse(d.ClientID)
		if err != nil {
			return wizard.Integration{}, fmt.Errorf("statsapi: parse client id %q: %w", d.ClientID, err)
		}
		out.ClientID = id
	}
	return out, nil
}

type campaignStatsDTO struct {
	CampaignID  string  `json:"campaign_id"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Cost        float64 `json:"cost"`
	Conversions int64   `json:"conversions"`
}

func (d campaignStatsDTO) toStats() wizard.CampaignStats {
	return wizard.CampaignStats{
		Impressions: d.Impressions,
		Clicks:      d.Clicks,
		Cost:        d.Cost,
		Conversions: d.Conversions,
	}
}

type countersDTO struct {
	Counters []wizard.Counter `json:"counters"`
}

func counterValues(query wizard.CounterQuery) url.Values {
	values := url.Values{}
	if query.AccountID != "" {
		values.Set("account_id", query.AccountID)
	}
	if len(query.CampaignIDs) > 0 {
		values.Set("campaign_ids", strings.Join(query.CampaignIDs, ","))
	}
	return values
}

func goalValues(query wizard.GoalQuery) url.Values {
	values := url.Values{}
	values.Set("date_from", query.DateRange.Start.Format(time.DateOnly))
	values.Set("date_to", query.DateRange.End.Format(time.DateOnly))
	if query.AccountID != "" {
		values.Set("account_id", query.AccountID)
	}
	switch query.Scope() {
	case wizard.GoalScopeCounters:
		ids := make([]string, len(query.CounterIDs))
		for i, id := range query.CounterIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		values.Set("counter_ids", strings.Join(ids, ","))
	case wizard.GoalScopeCampaigns:
		values.Set("campaign_ids", strings.Join(query.CampaignIDs, ","))
	}
	values.Set("with_stats", "false")
	return values
}

func decodeGoals(raw json.RawMessage) (wizard.GoalsResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return wizard.GoalsResult{}, nil
	}
	if trimmed[0] == '[' {
		var goals []wizard.Goal
		if err := json.Unmarshal(trimmed, &goals); err != nil {
			return wizard.GoalsResult{}, fmt.Errorf("statsapi: decode goals: %w", err)
		}
		return wizard.GoalsResult{Goals: goals}, nil
	}
	var result wizard.GoalsResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return wizard.GoalsResult{}, fmt.Errorf("statsapi: decode goals: %w", err)
	}
	return result, nil
}
