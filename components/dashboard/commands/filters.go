package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/goliatone/go-adboard/components/dashboard"
)

// UpdateFiltersInput is the wire shape of a filter mutation. Absent fields are
// left untouched; an empty project_id selects all projects.
type UpdateFiltersInput struct {
	Channel     *string   `json:"channel,omitempty"`
	Period      *string   `json:"period,omitempty"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	ProjectID   *string   `json:"project_id,omitempty"`
	CampaignIDs *[]string `json:"campaign_ids,omitempty"`
}

type filterService interface {
	UpdateFilters(ctx context.Context, update dashboard.FilterUpdate) (dashboard.FilterChange, error)
	ParseDate(raw string) (time.Time, error)
}

// UpdateFiltersCommand validates and applies a filter mutation as one change.
type UpdateFiltersCommand struct {
	service   filterService
	validator dashboard.PayloadValidator
	telemetry Telemetry
}

// NewUpdateFiltersCommand creates the command.
func NewUpdateFiltersCommand(service filterService, validator dashboard.PayloadValidator, telemetry Telemetry) *UpdateFiltersCommand {
	return &UpdateFiltersCommand{
		service:   service,
		validator: dashboard.NormalizeValidator(validator),
		telemetry: normalizeTelemetry(telemetry),
	}
}

var _ gocommand.Commander[UpdateFiltersInput] = (*UpdateFiltersCommand)(nil)

// Execute applies the update. Fetches triggered by the change run in the background.
func (c *UpdateFiltersCommand) Execute(ctx context.Context, msg UpdateFiltersInput) error {
	if c.service == nil {
		return errors.New("update filters command requires service")
	}
	if err := c.validator.Validate(dashboard.SchemaFilterUpdate, msg); err != nil {
		return err
	}
	update, err := c.toUpdate(msg)
	if err != nil {
		return err
	}
	change, err := c.service.UpdateFilters(ctx, update)
	if err != nil {
		return err
	}
	if change.Empty() {
		return nil
	}
	c.telemetry.Record(ctx, EventFiltersUpdated, map[string]any{
		"fields": uint8(change.Fields),
	})
	return nil
}

func (c *UpdateFiltersCommand) toUpdate(msg UpdateFiltersInput) (dashboard.FilterUpdate, error) {
	var update dashboard.FilterUpdate
	if msg.Channel != nil {
		channel := dashboard.NormalizeChannel(*msg.Channel)
		update.Channel = &channel
	}
	if msg.Period != nil {
		period := dashboard.Period(*msg.Period)
		update.Period = &period
	}
	if msg.StartDate != "" || msg.EndDate != "" {
		start, err := c.service.ParseDate(msg.StartDate)
		if err != nil {
			return update, err
		}
		end, err := c.service.ParseDate(msg.EndDate)
		if err != nil {
			return update, err
		}
		update.DateRange = &dashboard.DateRange{Start: start, End: end}
	}
	if msg.ProjectID != nil {
		id := uuid.Nil
		if raw := strings.TrimSpace(*msg.ProjectID); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				return update, dashboard.ValidationError("invalid project id %q", raw)
			}
			id = parsed
		}
		update.ProjectID = &id
	}
	if msg.CampaignIDs != nil {
		ids := append([]string(nil), (*msg.CampaignIDs)...)
		update.CampaignIDs = &ids
	}
	return update, nil
}
