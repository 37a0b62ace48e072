package wizard

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-adboard/components/dashboard"
)

var (
	// ErrNotStarted is returned by step operations before Start.
	ErrNotStarted = errors.New("wizard: no integration in progress")
	// ErrStepFailed blocks navigation until Retry or a successful call clears the failure.
	ErrStepFailed = errors.New("wizard: current step failed")

	errMissingAPI = errors.New("wizard: integration api not configured")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", dashboard.ErrValidation, fmt.Sprintf(format, args...))
}
