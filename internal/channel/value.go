package channel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Value is one read/write endpoint of a Channel.
//
// Implementations must enforce Mode before touching the backend: Read on a
// WriteOnly value and Write/WriteRaw on a ReadOnly value return
// ErrModeViolation.
type Value interface {
	Name() string
	Mode() Mode
	Read(ctx context.Context) (any, error)
	Write(ctx context.Context, v any) error
	// WriteRaw parses a wire-format string into the native type and writes it.
	WriteRaw(ctx context.Context, raw string) error
}

// Getter reads the live state behind a value.
type Getter[T any] func(ctx context.Context) (T, error)

// Setter writes the live state behind a value.
type Setter[T any] func(ctx context.Context, v T) error

// Parser converts a wire-format string into T.
type Parser[T any] func(raw string) (T, error)

// Typed is a Value whose native type is T. The getter and setter proxy to the
// device; Typed only enforces mode and parsing.
type Typed[T any] struct {
	name  string
	mode  Mode
	parse Parser[T]
	get   Getter[T]
	set   Setter[T]
}

var _ Value = (*Typed[bool])(nil)

// NewTyped creates a Value. get may be nil for WriteOnly values and set may be
// nil for ReadOnly values.
func NewTyped[T any](name string, mode Mode, parse Parser[T], get Getter[T], set Setter[T]) *Typed[T] {
	return &Typed[T]{
		name:  name,
		mode:  mode,
		parse: parse,
		get:   get,
		set:   set,
	}
}

// Name returns the value name, unique within its channel.
func (v *Typed[T]) Name() string { return v.name }

// Mode returns the access mode.
func (v *Typed[T]) Mode() Mode { return v.mode }

// Read returns the current native value.
func (v *Typed[T]) Read(ctx context.Context) (any, error) {
	if !v.mode.CanRead() || v.get == nil {
		return nil, fmt.Errorf("%w: %q is write-only", ErrModeViolation, v.name)
	}
	val, err := v.get(ctx)
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Write stores x, which must be a T or a wire-format string.
func (v *Typed[T]) Write(ctx context.Context, x any) error {
	if !v.mode.CanWrite() || v.set == nil {
		return fmt.Errorf("%w: %q is read-only", ErrModeViolation, v.name)
	}
	switch t := x.(type) {
	case T:
		return v.set(ctx, t)
	case string:
		return v.WriteRaw(ctx, t)
	default:
		var zero T
		return fmt.Errorf("%w: %q expects %T, got %T", ErrInvalidValue, v.name, zero, x)
	}
}

// WriteRaw parses raw and writes the result.
func (v *Typed[T]) WriteRaw(ctx context.Context, raw string) error {
	if !v.mode.CanWrite() || v.set == nil {
		return fmt.Errorf("%w: %q is read-only", ErrModeViolation, v.name)
	}
	parsed, err := v.parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidValue, v.name, err)
	}
	return v.set(ctx, parsed)
}

// Bool creates a boolean value.
func Bool(name string, mode Mode, get Getter[bool], set Setter[bool]) *Typed[bool] {
	return NewTyped(name, mode, ParseBool, get, set)
}

// Int creates an integer value.
func Int(name string, mode Mode, get Getter[int64], set Setter[int64]) *Typed[int64] {
	return NewTyped(name, mode, parseInt, get, set)
}

// Float creates a floating point value.
func Float(name string, mode Mode, get Getter[float64], set Setter[float64]) *Typed[float64] {
	return NewTyped(name, mode, parseFloat, get, set)
}

// String creates a string value. Any payload is accepted verbatim.
func String(name string, mode Mode, get Getter[string], set Setter[string]) *Typed[string] {
	return NewTyped(name, mode, func(raw string) (string, error) { return raw, nil }, get, set)
}

// ParseBool accepts 1/0, true/false, on/off and yes/no, case-insensitively.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true, nil
	case "0", "false", "off", "no":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", raw)
	}
}

func parseInt(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

// Render formats a value returned by Read for a text/plain response.
func Render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Numeric converts a value returned by Read into a float64 for time-series
// recording. Booleans map to 0 and 1.
func Numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}
