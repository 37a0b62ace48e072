package statsapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-adboard/components/dashboard"
)

var errMissingBaseURL = errors.New("statsapi: base url is required")

// RemoteError is a non-2xx backend response other than 401.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("statsapi: remote error %d", e.Status)
	}
	return fmt.Sprintf("statsapi: remote error %d: %s", e.Status, e.Detail)
}

// Unwrap classifies the response: client-side rejections are validation
// failures, everything else counts as a transport failure.
func (e *RemoteError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return dashboard.ErrValidation
	default:
		return dashboard.ErrNetwork
	}
}
