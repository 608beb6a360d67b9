package nlx402

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey reports an authenticated operation on a client that has
// no API key set.
var ErrMissingAPIKey = errors.New("nlx402: api key is required but not set")

// TransportError wraps a network-level failure (DNS, TLS, connect, timeout).
// The cause is opaque; callers should not inspect it beyond logging.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nlx402: http error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// APIError reports a reachable server that answered outside the 2xx range.
// Body holds the decoded diagnostic payload when the server sent parseable
// JSON, nil otherwise; a malformed error body never masks the status failure.
type APIError struct {
	Status int
	Body   any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nlx402: request failed with status %d", e.Status)
}

// InvalidResponseError reports a 2xx body that did not decode into the
// expected shape, or a local input precondition failure (empty nonce/tx).
type InvalidResponseError struct {
	Message string
}

func (e *InvalidResponseError) Error() string {
	return "nlx402: invalid response: " + e.Message
}

func invalidResponsef(format string, args ...any) error {
	return &InvalidResponseError{Message: fmt.Sprintf(format, args...)}
}
