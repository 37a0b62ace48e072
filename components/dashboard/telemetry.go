package dashboard

import "context"

// Telemetry records engine events (fetch outcomes, stale commits, resets).
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// TelemetryFunc adapts a function to Telemetry.
type TelemetryFunc func(ctx context.Context, event string, payload map[string]any)

// Record calls f.
func (f TelemetryFunc) Record(ctx context.Context, event string, payload map[string]any) {
	f(ctx, event, payload)
}

// Event names emitted by the coordinator.
const (
	EventStatsCommitted  = "dashboard.stats.committed"
	EventStatsStale      = "dashboard.stats.stale"
	EventStatsReadFailed = "dashboard.stats.read_failed"
	EventPoolCommitted   = "dashboard.pool.committed"
	EventPoolStale       = "dashboard.pool.stale"
	EventProjectsLoaded  = "dashboard.projects.loaded"
	EventCampaignsReset  = "dashboard.campaigns.reset"
	EventProjectFallback = "dashboard.project.fallback"
)

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
