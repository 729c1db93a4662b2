package influxdb

import "errors"

var (
	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnect is returned by Dial when the server does not answer a ping.
	ErrConnect = errors.New("influxdb: connect failed")

	// ErrDisabled is returned by Dial when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
