package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-adboard/components/dashboard"
)

// RefreshStatsInput asks for a manual refetch.
type RefreshStatsInput struct {
	// Projects also reloads the project directory.
	Projects bool `json:"projects"`
}

type refreshService interface {
	Refresh(ctx context.Context) error
	ReloadProjects(ctx context.Context) ([]dashboard.Project, error)
}

// RefreshStatsCommand refetches the campaign pool and statistics for the
// current filters.
type RefreshStatsCommand struct {
	service   refreshService
	telemetry Telemetry
}

// NewRefreshStatsCommand creates the command.
func NewRefreshStatsCommand(service refreshService, telemetry Telemetry) *RefreshStatsCommand {
	return &RefreshStatsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshStatsInput] = (*RefreshStatsCommand)(nil)

// Execute blocks until every requested read has settled.
func (c *RefreshStatsCommand) Execute(ctx context.Context, msg RefreshStatsInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if msg.Projects {
		if _, err := c.service.ReloadProjects(ctx); err != nil {
			return err
		}
	}
	if err := c.service.Refresh(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventStatsRefreshed, map[string]any{"projects": msg.Projects})
	return nil
}
