// Package channel defines the addressable endpoint model shared by the master
// and node daemons.
//
// A Module is a named collection of Channels backed by one device integration.
// A Channel is one logical device (a switch, a sensor, a TV, a group) exposing
// an ordered list of Values. The order of Values is part of the RPC contract:
// clients address them by numeric index.
//
// # Access Modes
//
// Every Value has a Mode. Reading a WriteOnly value or writing a ReadOnly value
// always fails with ErrModeViolation and never reaches the backend:
//
//	v := channel.Bool("state", channel.ReadOnly, getState, nil)
//	err := v.WriteRaw(ctx, "1") // errors.Is(err, channel.ErrModeViolation)
//
// # Errors
//
// Expected failures are sentinel errors (ErrMalformed, ErrNotFound,
// ErrModeViolation, ErrInvalidValue, ErrBackend, ErrTriggerFailed, ErrRouting)
// wrapped with context. Classify maps any error onto a Kind so transports can
// pick a status without string matching.
package channel
