package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/components/wizard"
)

// StartWizardInput opens the connection wizard on an integration.
type StartWizardInput struct {
	IntegrationID string `json:"integration_id"`
}

type wizardStarter interface {
	Start(ctx context.Context, integrationID string) error
	FetchProfiles(ctx context.Context) error
}

// StartWizardCommand loads the integration and the profiles of the first step.
type StartWizardCommand struct {
	store     wizardStarter
	telemetry Telemetry
}

// NewStartWizardCommand creates the command.
func NewStartWizardCommand(store wizardStarter, telemetry Telemetry) *StartWizardCommand {
	return &StartWizardCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[StartWizardInput] = (*StartWizardCommand)(nil)

// Execute starts a new wizard run.
func (c *StartWizardCommand) Execute(ctx context.Context, msg StartWizardInput) error {
	if c.store == nil {
		return errors.New("start wizard command requires store")
	}
	id := strings.TrimSpace(msg.IntegrationID)
	if id == "" {
		return dashboard.ValidationError("integration id is required")
	}
	if err := c.store.Start(ctx, id); err != nil {
		return err
	}
	if err := c.store.FetchProfiles(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventWizardStarted, map[string]any{"integration_id": id})
	return nil
}

// Wizard navigation actions.
const (
	ActionNext  = "next"
	ActionBack  = "back"
	ActionGoTo  = "goto"
	ActionRetry = "retry"
)

// WizardStepInput moves the wizard. Step is only read by ActionGoTo.
type WizardStepInput struct {
	Action string      `json:"action"`
	Step   wizard.Step `json:"step,omitempty"`
}

type wizardNavigator interface {
	State() wizard.State
	Next(ctx context.Context) (wizard.Step, error)
	Back(ctx context.Context) (wizard.Step, error)
	GoTo(ctx context.Context, step wizard.Step) error
	Retry()
	FetchProfiles(ctx context.Context) error
	FetchCampaigns(ctx context.Context) error
	FetchCounters(ctx context.Context) error
	FetchGoals(ctx context.Context) error
}

// WizardStepCommand navigates between steps and loads the data of the step
// entered going forward.
type WizardStepCommand struct {
	store     wizardNavigator
	telemetry Telemetry
}

// NewWizardStepCommand creates the command.
func NewWizardStepCommand(store wizardNavigator, telemetry Telemetry) *WizardStepCommand {
	return &WizardStepCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[WizardStepInput] = (*WizardStepCommand)(nil)

// Execute applies the navigation action.
func (c *WizardStepCommand) Execute(ctx context.Context, msg WizardStepInput) error {
	if c.store == nil {
		return errors.New("wizard step command requires store")
	}
	var err error
	switch strings.ToLower(strings.TrimSpace(msg.Action)) {
	case ActionNext:
		var step wizard.Step
		if step, err = c.store.Next(ctx); err == nil {
			err = c.load(ctx, step)
		}
	case ActionBack:
		_, err = c.store.Back(ctx)
	case ActionGoTo:
		err = c.store.GoTo(ctx, msg.Step)
	case ActionRetry:
		c.store.Retry()
		err = c.load(ctx, c.store.State().Step)
	default:
		return dashboard.ValidationError("unknown wizard action %q", msg.Action)
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventWizardNavigated, map[string]any{
		"action": msg.Action,
		"step":   c.store.State().Step.String(),
	})
	return nil
}

// load fetches what a step renders. Counters are optional for goal
// selection: their failure is surfaced as a warning and goals still load.
func (c *WizardStepCommand) load(ctx context.Context, step wizard.Step) error {
	switch step {
	case wizard.StepProfileSelection:
		return c.store.FetchProfiles(ctx)
	case wizard.StepCampaignDiscovery:
		return c.store.FetchCampaigns(ctx)
	case wizard.StepGoalSelection:
		_ = c.store.FetchCounters(ctx)
		return c.store.FetchGoals(ctx)
	}
	return nil
}

// Selection targets.
const (
	TargetProfile     = "profile"
	TargetCampaigns   = "campaigns"
	TargetCounters    = "counters"
	TargetGoals       = "goals"
	TargetPrimaryGoal = "primary_goal"
)

// Selection actions.
const (
	ActionSelect   = "select"
	ActionDeselect = "deselect"
	ActionToggle   = "toggle"
	ActionAll      = "all"
)

// WizardSelectInput changes one selection. Counter and goal ids are numeric strings.
type WizardSelectInput struct {
	Target string   `json:"target"`
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

type wizardSelector interface {
	SelectProfile(ctx context.Context, login string) error
	ToggleCampaign(id string)
	SelectCampaigns(ids []string)
	DeselectCampaigns(ids []string)
	SelectAllCampaigns()
	ToggleCounter(id int64)
	SelectCounters(ids []int64)
	DeselectCounters(ids []int64)
	ToggleGoal(id int64)
	SelectGoals(ids []int64)
	DeselectGoals(ids []int64)
	SelectPrimaryGoal(id int64) error
}

// WizardSelectCommand edits profile, campaign, counter and goal selections.
type WizardSelectCommand struct {
	store     wizardSelector
	telemetry Telemetry
}

// NewWizardSelectCommand creates the command.
func NewWizardSelectCommand(store wizardSelector, telemetry Telemetry) *WizardSelectCommand {
	return &WizardSelectCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[WizardSelectInput] = (*WizardSelectCommand)(nil)

// Execute applies the selection change.
func (c *WizardSelectCommand) Execute(ctx context.Context, msg WizardSelectInput) error {
	if c.store == nil {
		return errors.New("wizard select command requires store")
	}
	target := strings.ToLower(strings.TrimSpace(msg.Target))
	action := strings.ToLower(strings.TrimSpace(msg.Action))
	var err error
	switch target {
	case TargetProfile:
		err = c.single(msg, func(id string) error { return c.store.SelectProfile(ctx, id) })
	case TargetCampaigns:
		err = c.campaigns(action, msg.IDs)
	case TargetCounters:
		err = numeric(action, msg.IDs, c.store.ToggleCounter, c.store.SelectCounters, c.store.DeselectCounters)
	case TargetGoals:
		err = numeric(action, msg.IDs, c.store.ToggleGoal, c.store.SelectGoals, c.store.DeselectGoals)
	case TargetPrimaryGoal:
		err = c.single(msg, func(raw string) error {
			id, err := parseID(raw)
			if err != nil {
				return err
			}
			return c.store.SelectPrimaryGoal(id)
		})
	default:
		return dashboard.ValidationError("unknown selection target %q", msg.Target)
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventWizardSelected, map[string]any{
		"target": target,
		"action": action,
		"count":  len(msg.IDs),
	})
	return nil
}

func (c *WizardSelectCommand) single(msg WizardSelectInput, apply func(string) error) error {
	if len(msg.IDs) != 1 {
		return dashboard.ValidationError("%s expects exactly one id", msg.Target)
	}
	return apply(msg.IDs[0])
}

func (c *WizardSelectCommand) campaigns(action string, ids []string) error {
	switch action {
	case ActionAll:
		c.store.SelectAllCampaigns()
	case ActionSelect:
		c.store.SelectCampaigns(ids)
	case ActionDeselect:
		c.store.DeselectCampaigns(ids)
	case ActionToggle:
		for _, id := range ids {
			c.store.ToggleCampaign(id)
		}
	default:
		return dashboard.ValidationError("unknown selection action %q", action)
	}
	return nil
}

func numeric(action string, raw []string, toggle func(int64), selectIDs, deselectIDs func([]int64)) error {
	ids := make([]int64, 0, len(raw))
	for _, value := range raw {
		id, err := parseID(value)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	switch action {
	case ActionSelect:
		selectIDs(ids)
	case ActionDeselect:
		deselectIDs(ids)
	case ActionToggle:
		for _, id := range ids {
			toggle(id)
		}
	default:
		return dashboard.ValidationError("unknown selection action %q", action)
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, dashboard.ValidationError("invalid id %q", raw)
	}
	return id, nil
}

// FinishConnectionInput commits the wizard selection.
type FinishConnectionInput struct{}

type wizardFinisher interface {
	FinishConnection(ctx context.Context) error
}

// FinishConnectionCommand wraps Store.FinishConnection.
type FinishConnectionCommand struct {
	store     wizardFinisher
	telemetry Telemetry
}

// NewFinishConnectionCommand creates the command.
func NewFinishConnectionCommand(store wizardFinisher, telemetry Telemetry) *FinishConnectionCommand {
	return &FinishConnectionCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[FinishConnectionInput] = (*FinishConnectionCommand)(nil)

// Execute commits the integration.
func (c *FinishConnectionCommand) Execute(ctx context.Context, _ FinishConnectionInput) error {
	if c.store == nil {
		return errors.New("finish connection command requires store")
	}
	if err := c.store.FinishConnection(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventWizardFinished, nil)
	return nil
}
