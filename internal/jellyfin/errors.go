package jellyfin

import (
	"fmt"

	"github.com/mross/tempo/internal/domain"
)

// networkErrorHint enumerates the plausible root causes of a transport
// failure that never produced an HTTP status. On the devices this client
// targets all four are common and indistinguishable from each other at
// this layer, so the caller gets the full list.
const networkErrorHint = "possible causes: mixed content (https page, http server), " +
	"CORS rejection, untrusted TLS certificate, or server offline"

// HTTPError is a non-2xx response from the catalog API.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.StatusText)
}

// JSONError wraps a body that failed to parse as JSON.
type JSONError struct {
	Err error
}

func (e *JSONError) Error() string {
	return "JSON parse error: " + e.Err.Error()
}

func (e *JSONError) Unwrap() error {
	return e.Err
}

// NetworkError is a transport-level failure: the request never yielded
// an HTTP status. It carries a diagnostic hint because on constrained
// devices the underlying cause is ambiguous.
type NetworkError struct {
	Err  error
	Hint string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v (%s)", e.Err, e.Hint)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is lets callers test with errors.Is(err, domain.ErrServerOffline)
// without caring about the transport detail.
func (e *NetworkError) Is(target error) bool {
	return target == domain.ErrServerOffline
}
