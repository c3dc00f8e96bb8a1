package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// UnauthorizedError is returned for HTTP 401/403. It is terminal for the
// current session: the user must authenticate again.
type UnauthorizedError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UnauthorizedError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unauthorized (%d): %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: unauthorized (%d)", e.Op, e.StatusCode)
}

// RemoteError is returned when the manager rejects a request with any other
// non-2xx status.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: manager returned %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: manager returned %d", e.Op, e.StatusCode)
}

// TransportError wraps network-level failures: DNS, refused connections,
// TLS handshake errors and timeouts.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a successful response body does not match
// the expected shape.
type ProtocolError struct {
	Op   string
	Body string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func newTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Timeout: isTimeout(err), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Kind is the coarse classification callers branch on
type Kind int

const (
	KindOther Kind = iota
	KindUnauthorized
	KindRemote
	KindTransport
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRemote:
		return "remote"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	default:
		return "other"
	}
}

// Classify maps err onto the client error taxonomy.
func Classify(err error) Kind {
	var (
		unauthorized *UnauthorizedError
		remote       *RemoteError
		transport    *TransportError
		protocol     *ProtocolError
	)
	switch {
	case err == nil:
		return KindOther
	case errors.As(err, &unauthorized):
		return KindUnauthorized
	case errors.As(err, &remote):
		return KindRemote
	case errors.As(err, &transport):
		return KindTransport
	case errors.As(err, &protocol):
		return KindProtocol
	default:
		return KindOther
	}
}

// IsUnauthorized reports whether err requires re-authentication.
func IsUnauthorized(err error) bool {
	return Classify(err) == KindUnauthorized
}

// IsRetryable reports whether repeating the request later may succeed.
// Only transport failures qualify.
func IsRetryable(err error) bool {
	return Classify(err) == KindTransport
}
