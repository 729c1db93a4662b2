package module

import (
	"fmt"
	"strconv"
	"time"

	"github.com/winstonhome/winston/internal/channel"
)

// Parameters are the named, possibly repeated string parameters configured
// for one channel. They are only consulted during Initialize.
type Parameters struct {
	channelID string
	values    map[string][]string
}

// NewParameters wraps the parameters of channel channelID.
func NewParameters(channelID string, values map[string][]string) Parameters {
	if values == nil {
		values = map[string][]string{}
	}
	return Parameters{channelID: channelID, values: values}
}

// ChannelID returns the id of the channel being configured.
func (p Parameters) ChannelID() string { return p.channelID }

// Has reports whether name was given at least once.
func (p Parameters) Has(name string) bool {
	return len(p.values[name]) > 0
}

// Get returns the first value of name.
func (p Parameters) Get(name string) (string, bool) {
	v := p.values[name]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// All returns every value of name in declaration order.
func (p Parameters) All(name string) []string {
	return p.values[name]
}

// String returns the first value of name, or def.
func (p Parameters) String(name, def string) string {
	if v, ok := p.Get(name); ok {
		return v
	}
	return def
}

// Require returns the first value of name or ErrMissingParameter.
func (p Parameters) Require(name string) (string, error) {
	v, ok := p.Get(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: channel %q: %s", ErrMissingParameter, p.channelID, name)
	}
	return v, nil
}

// Int parses the first value of name, returning def when absent.
func (p Parameters) Int(name string, def int) (int, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, p.invalid(name, v)
	}
	return n, nil
}

// Bool parses the first value of name, returning def when absent.
func (p Parameters) Bool(name string, def bool) (bool, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	b, err := channel.ParseBool(v)
	if err != nil {
		return false, p.invalid(name, v)
	}
	return b, nil
}

// Duration parses the first value of name as a Go duration ("5s", "250ms"),
// returning def when absent.
func (p Parameters) Duration(name string, def time.Duration) (time.Duration, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, p.invalid(name, v)
	}
	return d, nil
}

func (p Parameters) invalid(name, value string) error {
	return fmt.Errorf("%w: channel %q: %s=%q", ErrInvalidParameter, p.channelID, name, value)
}
