package module

import "github.com/winstonhome/winston/internal/channel"

// Base carries the type key and channel collection shared by module
// implementations. Embed it and call Add from Initialize.
type Base struct {
	typ string
	channel.Collection
}

// NewBase creates a Base for module type typ.
func NewBase(typ string) Base {
	return Base{typ: typ}
}

// Type returns the module key.
func (b *Base) Type() string { return b.typ }
