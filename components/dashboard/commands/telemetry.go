package commands

import (
	"context"

	"github.com/goliatone/go-adboard/components/dashboard"
)

// Telemetry allows commands to emit structured events.
type Telemetry = dashboard.Telemetry

// Events recorded after a command succeeds.
const (
	EventFiltersUpdated  = "dashboard.command.filters_updated"
	EventStatsRefreshed  = "dashboard.command.stats_refreshed"
	EventWizardStarted   = "dashboard.command.wizard_started"
	EventWizardNavigated = "dashboard.command.wizard_navigated"
	EventWizardSelected  = "dashboard.command.wizard_selected"
	EventWizardFinished  = "dashboard.command.wizard_finished"
)

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
