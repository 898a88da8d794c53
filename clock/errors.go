package clock

import "errors"

// ErrTimeout is returned by a synchronous wrapper when its request-reply
// deadline elapses. The Clock itself is unaffected and may still complete
// the work; the caller simply gave up waiting (spec §7).
var ErrTimeout = errors.New("clock: request timed out")

// ErrBadArgument is returned at the API boundary, before any message is
// sent to the Clock, when a caller supplies an out-of-domain argument (an
// unrecognized timing kind, update field, or a value of the wrong type for
// the field being updated).
var ErrBadArgument = errors.New("clock: bad argument")

// ErrNotIdle is returned when step, run, or reset is requested while the
// Clock is not idle. The spec's command table states idle as each
// command's precondition but does not define the violation behavior; this
// implementation rejects the request immediately rather than queuing it.
var ErrNotIdle = errors.New("clock: not idle")

// ErrNotRunning is returned when stop is requested while the Clock is not
// running.
var ErrNotRunning = errors.New("clock: not running")
