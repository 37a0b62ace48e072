package dashboard

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the dashboard engine, the wizard and the REST client.
var (
	// ErrNetwork wraps transport failures and timeouts.
	ErrNetwork = errors.New("dashboard: network failure")
	// ErrAuthExpired marks a 401 response. It is never retried; the session collaborator handles it.
	ErrAuthExpired = errors.New("dashboard: session expired")
	// ErrValidation marks a malformed filter or selection.
	ErrValidation = errors.New("dashboard: validation failed")
	// ErrPartialAggregate is returned when some, but not both critical, stats reads failed.
	ErrPartialAggregate = errors.New("dashboard: partial statistics")
	// ErrStatsUnavailable is returned when both critical reads (summary and dynamics) failed.
	ErrStatsUnavailable = errors.New("dashboard: statistics unavailable")
)

var (
	errMissingStatsSource   = errors.New("dashboard: stats source not configured")
	errMissingProjectSource = errors.New("dashboard: project source not configured")
	errMissingPoolSource    = errors.New("dashboard: campaign pool source not configured")
	errMissingFilterStore   = errors.New("dashboard: filter store not configured")
	errInvalidDateRange     = fmt.Errorf("%w: start date is after end date", ErrValidation)
	errUnknownPeriod        = fmt.Errorf("%w: unknown period preset", ErrValidation)
	errEmptyChannel         = fmt.Errorf("%w: channel is required", ErrValidation)
	errMissingDate          = fmt.Errorf("%w: start and end dates are required", ErrValidation)
)

// ValidationError builds an ErrValidation-wrapped error with context.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
