package channel

import (
	"errors"
	"fmt"
)

// Type identifies the device kind behind a channel. It is used for client
// introspection only; routing never looks at it.
type Type string

// Channel types.
const (
	TypeSwitch      Type = "switch"
	TypeSensor      Type = "sensor"
	TypeRelay       Type = "relay"
	TypeReed        Type = "reed"
	TypeTemperature Type = "temperature"
	TypeTV          Type = "tv"
	TypeGroup       Type = "group"
	TypeVariable    Type = "variable"
	TypeRemote      Type = "remote"
	TypeModbus      Type = "modbus"
)

// Channel is one logical device. The order of Values is the contract for
// positional addressing.
type Channel interface {
	ID() string
	Type() Type
	Values() []Value
}

// Module is a named collection of channels sharing one backend.
type Module interface {
	// Type is the module key used as the first path segment.
	Type() string
	// Channels returns channels in declaration order.
	Channels() []Channel
	Channel(id string) (Channel, bool)
}

// Basic is a Channel with a fixed value list.
type Basic struct {
	id     string
	typ    Type
	values []Value
}

var _ Channel = (*Basic)(nil)

// New creates a channel.
func New(id string, typ Type, values ...Value) *Basic {
	return &Basic{id: id, typ: typ, values: values}
}

// ID returns the channel id.
func (c *Basic) ID() string { return c.id }

// Type returns the device kind.
func (c *Basic) Type() Type { return c.typ }

// Values returns the values in positional order.
func (c *Basic) Values() []Value { return c.values }

// ValueAt returns the value at idx, or ErrMalformed when idx is out of range.
func ValueAt(ch Channel, idx int) (Value, error) {
	values := ch.Values()
	if idx < 0 || idx >= len(values) {
		return nil, fmt.Errorf("%w: value index %d out of range (channel %q has %d)",
			ErrMalformed, idx, ch.ID(), len(values))
	}
	return values[idx], nil
}

// Errors returned by Collection.Add.
var (
	ErrDuplicateChannel = errors.New("channel: duplicate channel id")
	ErrDuplicateValue   = errors.New("channel: duplicate value name")
)

// Collection keeps channels in insertion order with lookup by id. Module
// implementations embed it.
type Collection struct {
	order []Channel
	byID  map[string]Channel
}

// Add appends ch. Channel ids are unique within a module and value names
// are unique within a channel.
func (c *Collection) Add(ch Channel) error {
	seen := make(map[string]struct{}, len(ch.Values()))
	for _, v := range ch.Values() {
		if _, dup := seen[v.Name()]; dup {
			return fmt.Errorf("%w: channel %q value %q", ErrDuplicateValue, ch.ID(), v.Name())
		}
		seen[v.Name()] = struct{}{}
	}

	if c.byID == nil {
		c.byID = make(map[string]Channel)
	}
	if _, exists := c.byID[ch.ID()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateChannel, ch.ID())
	}
	c.byID[ch.ID()] = ch
	c.order = append(c.order, ch)
	return nil
}

// Channels returns channels in insertion order.
func (c *Collection) Channels() []Channel {
	out := make([]Channel, len(c.order))
	copy(out, c.order)
	return out
}

// Channel looks up a channel by id.
func (c *Collection) Channel(id string) (Channel, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// IDs returns channel ids in insertion order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.order))
	for i, ch := range c.order {
		ids[i] = ch.ID()
	}
	return ids
}

// Len returns the number of channels.
func (c *Collection) Len() int { return len(c.order) }
