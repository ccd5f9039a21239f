package providers

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransportError reports that the request never produced an HTTP response:
// DNS, connect, TLS, or a deadline. Callers may retry; this package does not.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(e.Err.Error(), "deadline exceeded")
}

// APIError reports a non-2xx HTTP status. Body is the upstream diagnostic text.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300]
	}
	if e.StatusCode == 429 && body == "" {
		body = "rate limit exceeded"
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, body)
}

// ResponseError reports a 2xx response whose body is not the expected shape.
type ResponseError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid response: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: invalid response: %s", e.Provider, e.Reason)
}

func (e *ResponseError) Unwrap() error { return e.Err }
