package group

import (
	"errors"
	"fmt"

	"github.com/winstonhome/winston/internal/channel"
)

// Domain errors for the group package.
var (
	// ErrInvalidTrigger is returned when a trigger definition cannot be parsed.
	ErrInvalidTrigger = errors.New("group: invalid trigger")

	// ErrNoDispatcher is returned when a group fires before SetDispatcher.
	ErrNoDispatcher = errors.New("group: no dispatcher")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("group: execution not found")
)

// TriggerError reports the action that stopped a cascade. It matches
// channel.ErrTriggerFailed and unwraps to the action's own error.
type TriggerError struct {
	Group  string
	Action string
	Err    error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("group %q: action %q: %v", e.Group, e.Action, e.Err)
}

// Unwrap returns the trigger failure sentinel and the action error.
func (e *TriggerError) Unwrap() []error {
	return []error{channel.ErrTriggerFailed, e.Err}
}
