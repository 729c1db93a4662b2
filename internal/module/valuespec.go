package module

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/winstonhome/winston/internal/channel"
)

// ValueKind is the native type of a configured value.
type ValueKind string

// Supported value kinds.
const (
	KindBool   ValueKind = "bool"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindString ValueKind = "string"
)

// zero returns the wire form of the kind's zero value.
func (k ValueKind) zero() string {
	switch k {
	case KindBool:
		return "false"
	case KindInt, KindFloat:
		return "0"
	default:
		return ""
	}
}

// ValueSpec describes a value declared in configuration as
// "name:kind:mode[:initial]".
type ValueSpec struct {
	Name    string
	Kind    ValueKind
	Mode    channel.Mode
	Initial string
}

// ParseValueSpec parses a value declaration such as "away:bool:rw:false".
func ParseValueSpec(s string) (ValueSpec, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return ValueSpec{}, fmt.Errorf("%w: value %q: want name:kind:mode[:initial]", ErrInvalidParameter, s)
	}

	spec := ValueSpec{Name: strings.TrimSpace(parts[0]), Kind: ValueKind(strings.TrimSpace(parts[1]))}
	if spec.Name == "" {
		return ValueSpec{}, fmt.Errorf("%w: value %q: empty name", ErrInvalidParameter, s)
	}
	switch spec.Kind {
	case KindBool, KindInt, KindFloat, KindString:
	default:
		return ValueSpec{}, fmt.Errorf("%w: value %q: unknown kind %q", ErrInvalidParameter, s, spec.Kind)
	}

	mode, err := channel.ParseMode(strings.TrimSpace(parts[2]))
	if err != nil {
		return ValueSpec{}, fmt.Errorf("%w: value %q: %w", ErrInvalidParameter, s, err)
	}
	spec.Mode = mode

	spec.Initial = spec.Kind.zero()
	if len(parts) == 4 {
		spec.Initial = parts[3]
	}
	if err := spec.Check(spec.Initial); err != nil {
		return ValueSpec{}, fmt.Errorf("%w: value %q: %w", ErrInvalidParameter, s, err)
	}
	return spec, nil
}

// Check reports whether raw is a valid payload for the spec's kind.
func (s ValueSpec) Check(raw string) error {
	var err error
	switch s.Kind {
	case KindBool:
		_, err = channel.ParseBool(raw)
	case KindInt:
		_, err = parseInt(raw)
	case KindFloat:
		_, err = parseFloat(raw)
	}
	return err
}

// RawGetter reads the wire form of a value.
type RawGetter func(ctx context.Context) (string, error)

// RawSetter writes the wire form of a value.
type RawSetter func(ctx context.Context, raw string) error

// Bind builds a channel value of the spec's kind backed by wire-form
// accessors. Payloads are validated before set is called, and values
// returned by get that do not parse are backend failures. A nil get or
// set leaves that direction unsupported.
func (s ValueSpec) Bind(get RawGetter, set RawSetter) channel.Value {
	switch s.Kind {
	case KindBool:
		return channel.Bool(s.Name, s.Mode, getter(get, channel.ParseBool), setter[bool](set))
	case KindInt:
		return channel.Int(s.Name, s.Mode, getter(get, parseInt), setter[int64](set))
	case KindFloat:
		return channel.Float(s.Name, s.Mode, getter(get, parseFloat), setter[float64](set))
	default:
		return channel.String(s.Name, s.Mode, getter(get, func(raw string) (string, error) { return raw, nil }), setter[string](set))
	}
}

func getter[T any](get RawGetter, parse func(string) (T, error)) channel.Getter[T] {
	if get == nil {
		return nil
	}
	return func(ctx context.Context) (T, error) {
		raw, err := get(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(raw)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("%w: unexpected value %q", channel.ErrBackend, raw)
		}
		return v, nil
	}
}

func setter[T any](set RawSetter) channel.Setter[T] {
	if set == nil {
		return nil
	}
	return func(ctx context.Context, v T) error {
		return set(ctx, channel.Render(v))
	}
}

func parseInt(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
