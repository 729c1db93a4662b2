package group

import (
	"fmt"
	"slices"
	"strings"
)

// Trigger maps a set of input literals to an ordered list of actions.
type Trigger struct {
	Inputs  []string `json:"inputs"`
	Actions []string `json:"actions"`
}

// ParseTrigger parses "in1|in2 -> mod/ch/0/1, mod2/ch/0/0".
func ParseTrigger(def string) (Trigger, error) {
	lhs, rhs, ok := strings.Cut(def, "->")
	if !ok {
		return Trigger{}, fmt.Errorf("%w: %q: missing '->'", ErrInvalidTrigger, def)
	}

	var t Trigger
	for _, in := range strings.Split(lhs, "|") {
		in = strings.TrimSpace(in)
		if in == "" {
			return Trigger{}, fmt.Errorf("%w: %q: empty input", ErrInvalidTrigger, def)
		}
		t.Inputs = append(t.Inputs, in)
	}
	for _, a := range strings.Split(rhs, ",") {
		a = strings.Trim(strings.TrimSpace(a), "/")
		if a == "" {
			return Trigger{}, fmt.Errorf("%w: %q: empty action", ErrInvalidTrigger, def)
		}
		if strings.Count(a, "/") < 3 {
			return Trigger{}, fmt.Errorf("%w: %q: action %q must be module/channel/index/payload",
				ErrInvalidTrigger, def, a)
		}
		t.Actions = append(t.Actions, a)
	}
	return t, nil
}

// Matches reports whether value is one of the trigger's inputs.
func (t Trigger) Matches(value string) bool {
	return slices.Contains(t.Inputs, value)
}

// String returns the definition syntax accepted by ParseTrigger.
func (t Trigger) String() string {
	return strings.Join(t.Inputs, "|") + " -> " + strings.Join(t.Actions, ", ")
}
