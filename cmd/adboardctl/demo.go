package main

import (
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/wizard"
	"github.com/goliatone/go-adboard/pkg/statsapi"
)

// Demo project ids are fixed so --project can be passed in mock mode.
var (
	demoAcme  = uuid.MustParse("6f1c2a52-3d1b-4f0e-9a6e-0c7c1b1d2a01")
	demoGlobo = uuid.MustParse("6f1c2a52-3d1b-4f0e-9a6e-0c7c1b1d2a02")
)

func demoData(now time.Time) statsapi.MockData {
	labels := make([]string, 0, 7)
	for i := 6; i >= 0; i-- {
		labels = append(labels, now.AddDate(0, 0, -i).Format(time.DateOnly))
	}
	return statsapi.MockData{
		Summary: dashboard.Summary{
			Expenses: 48250.5, Impressions: 182400, Clicks: 5230, Leads: 212, CPC: 9.23, CPA: 227.6,
		},
		Dynamics: dashboard.Dynamics{
			Labels: labels,
			Costs:  []float64{6100, 6800, 7050, 6400, 7300, 7600, 7000.5},
			Clicks: []int64{690, 720, 760, 700, 780, 810, 770},
		},
		TopEntities: []dashboard.TopEntity{
			{Name: "Acme", Expenses: 30100, Percentage: 62.4},
			{Name: "Globo", Expenses: 18150.5, Percentage: 37.6},
		},
		Campaigns: []dashboard.CampaignRow{
			{Name: "Search / Brand", Impressions: 64000, Clicks: 2900, Cost: 21000, Conversions: 120, CPC: 7.24, CPA: 175},
			{Name: "Feed / Retargeting", Impressions: 118400, Clicks: 2330, Cost: 27250.5, Conversions: 92, CPC: 11.7, CPA: 296.2},
		},
		Projects: []dashboard.Project{
			{ID: demoAcme, Name: "Acme"},
			{ID: demoGlobo, Name: "Globo"},
		},
		Pool: map[uuid.UUID][]dashboard.Campaign{
			demoAcme: {
				{ID: "acme-search", Name: "Search / Brand", Channel: dashboard.ChannelYandex, State: "ON"},
				{ID: "acme-feed", Name: "Feed / Retargeting", Channel: dashboard.ChannelVK, State: "ON"},
			},
			demoGlobo: {
				{ID: "globo-search", Name: "Search / Generic", Channel: dashboard.ChannelYandex, State: "OFF"},
			},
		},
		Integration: wizard.Integration{
			Platform:   "yandex direct",
			ClientID:   demoAcme,
			ClientName: "Acme",
			AccountID:  "acme-direct",
		},
		Profiles: []wizard.Profile{
			{Login: "acme-direct", Name: "Acme Direct"},
			{Login: "acme-agency", Name: "Acme Agency"},
		},
		Discovered: []wizard.Campaign{
			{ID: "acme-search", Name: "Search / Brand", ExternalID: "1001", State: wizard.CampaignStateOn},
			{ID: "acme-network", Name: "Network / Generic", ExternalID: "1002", State: "OFF"},
		},
		CampaignStats: map[string]wizard.CampaignStats{
			"acme-search": {Impressions: 64000, Clicks: 2900, Cost: 21000, Conversions: 120},
		},
		Counters: []wizard.Counter{{ID: 4400101, Name: "acme.example", Site: "acme.example"}},
		Goals: wizard.GoalsResult{Goals: []wizard.Goal{
			{ID: 301, Name: "Lead form", ConversionRate: 0.041},
			{ID: 302, Name: "Phone call", ConversionRate: 0.018},
		}},
	}
}
