// Package errs defines the control plane's error taxonomy: a small set of
// sentinel errors that broker and lifecycle code wraps with
// fmt.Errorf("...: %w", ...) so callers can classify a failure with
// errors.Is. Errors returned by agent-runtime method handlers reach the
// host as *wire.AgentError values, not as these sentinels.
package errs

import "errors"

var (
	// ErrTransport means the underlying connection to the backend or agent
	// failed or was severed (socket closed, process died, write failed).
	ErrTransport = errors.New("transport error")

	// ErrTimeout means a request was posted but no response arrived within
	// the configured timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrPrecondition means the caller asked for an operation that the
	// current lifecycle state does not allow (e.g. a second Attach while an
	// attachment is already in progress or established).
	ErrPrecondition = errors.New("precondition not met")

	// ErrNotFound means the caller referenced an id (session, script,
	// library entry, folder, watch) that does not exist.
	ErrNotFound = errors.New("not found")
)
