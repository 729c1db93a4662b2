// Package plugins builds the modules served by a node daemon: "relay",
// "reed" and "temperature". They are addressed exactly like master modules,
// e.g. io/relay/garage_door/1/1 clicks the garage door relay.
package plugins
