package channel

import (
	"fmt"
	"strings"
)

// Mode is the access mode of a Value.
type Mode int

// Access modes.
const (
	ReadOnly Mode = iota + 1
	WriteOnly
	ReadWrite
)

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	case ReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// CanRead reports whether Read is permitted.
func (m Mode) CanRead() bool {
	return m == ReadOnly || m == ReadWrite
}

// CanWrite reports whether Write and WriteRaw are permitted.
func (m Mode) CanWrite() bool {
	return m == WriteOnly || m == ReadWrite
}

// ParseMode parses "ro", "wo", "rw" and their long forms.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ro", "r", "read_only", "readonly":
		return ReadOnly, nil
	case "wo", "w", "write_only", "writeonly":
		return WriteOnly, nil
	case "rw", "read_write", "readwrite":
		return ReadWrite, nil
	default:
		return 0, fmt.Errorf("unknown access mode %q", s)
	}
}
