package channel

import "errors"

// Domain errors for addressing and value access.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, channel.ErrModeViolation) {
//	    // read on a write-only value, or vice versa
//	}
var (
	// ErrMalformed is returned when an RPC path has the wrong shape.
	ErrMalformed = errors.New("malformed request")

	// ErrNotFound is returned for an unknown module, node, or channel.
	ErrNotFound = errors.New("not found")

	// ErrModeViolation is returned when a value is read or written against its mode.
	ErrModeViolation = errors.New("mode violation")

	// ErrInvalidValue is returned when a write payload cannot be parsed into
	// the value's native type.
	ErrInvalidValue = errors.New("invalid value")

	// ErrBackend is returned when the device behind a value fails.
	ErrBackend = errors.New("backend failure")

	// ErrTriggerFailed is returned when an action in a group cascade fails.
	ErrTriggerFailed = errors.New("trigger failed")

	// ErrRouting is returned when a request cannot be forwarded to a remote node.
	ErrRouting = errors.New("routing failure")
)

// Kind is the category of a failure, used to choose a response status.
type Kind int

// Failure kinds, in the order Classify tests them.
const (
	KindNone Kind = iota
	KindMalformed
	KindNotFound
	KindRouting
	KindModeViolation
	KindInvalidValue
	KindTrigger
	KindBackend
	// KindUnknown is any other error returned by a value.
	KindUnknown
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMalformed:
		return "malformed"
	case KindNotFound:
		return "not_found"
	case KindRouting:
		return "routing_failure"
	case KindModeViolation:
		return "mode_violation"
	case KindInvalidValue:
		return "invalid_value"
	case KindTrigger:
		return "trigger_failure"
	case KindBackend:
		return "backend_failure"
	default:
		return "unknown"
	}
}

// Classify returns the Kind of err. A trigger failure is reported as
// KindTrigger even when the failing action itself was, say, a not-found.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTriggerFailed):
		return KindTrigger
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRouting):
		return KindRouting
	case errors.Is(err, ErrModeViolation):
		return KindModeViolation
	case errors.Is(err, ErrInvalidValue):
		return KindInvalidValue
	case errors.Is(err, ErrBackend):
		return KindBackend
	default:
		return KindUnknown
	}
}
