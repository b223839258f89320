package chatkit

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfiguration wraps config.ErrMissingAPIKey / ErrMissingWorkflowID.
	ErrMissingConfiguration = errors.New("chatkit configuration missing")
	ErrTimeout              = errors.New("chatkit session request timed out")
	ErrInvalidResponse      = errors.New("chatkit returned an invalid session response")
)

// UpstreamError carries a non-2xx reply from the provider. Body is for logs only.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chatkit upstream returned status %d", e.StatusCode)
}
