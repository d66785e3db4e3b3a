package emergency

import "errors"

var (
	// ErrInvalidTransition rejects an operator action the session state forbids.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStaleSelection means the selected team stopped being available before dispatch.
	ErrStaleSelection = errors.New("stale team selection")
)
