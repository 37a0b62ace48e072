package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-adboard/components/wizard"
)

type wizardReader interface {
	State() wizard.State
	Selection() wizard.Selection
}

// WizardView is the wizard state with the commit payload it would send.
type WizardView struct {
	State     wizard.State     `json:"state"`
	Selection wizard.Selection `json:"selection"`
}

// WizardStateQuery reads the connection wizard.
type WizardStateQuery struct {
	store wizardReader
}

// NewWizardStateQuery builds the query.
func NewWizardStateQuery(store wizardReader) *WizardStateQuery {
	return &WizardStateQuery{store: store}
}

var _ gocommand.Querier[struct{}, WizardView] = (*WizardStateQuery)(nil)

// Query returns a copy of the wizard state.
func (q *WizardStateQuery) Query(context.Context, struct{}) (WizardView, error) {
	return WizardView{State: q.store.State(), Selection: q.store.Selection()}, nil
}
