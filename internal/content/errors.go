package content

import (
	"errors"
	"fmt"
)

// ErrUnexpectedResponse is returned when the service answers 2xx with a
// non-OK response code.
var ErrUnexpectedResponse = errors.New("unexpected response from content service")

// APIError describes a non-2xx answer from the content service.
type APIError struct {
	Op         string
	StatusCode int
	RequestID  string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsTemporary reports whether err is a retryable service failure.
func IsTemporary(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return false
}
