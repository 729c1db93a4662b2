package module

import "errors"

// Domain errors for module construction.
var (
	// ErrUnknownType is returned when no factory exists for a module type.
	ErrUnknownType = errors.New("module: unknown module type")

	// ErrDuplicateModule is returned when two modules share a type key.
	ErrDuplicateModule = errors.New("module: duplicate module type")

	// ErrMissingParameter is returned when a required channel parameter is absent.
	ErrMissingParameter = errors.New("module: missing parameter")

	// ErrInvalidParameter is returned when a channel parameter cannot be parsed.
	ErrInvalidParameter = errors.New("module: invalid parameter")
)
