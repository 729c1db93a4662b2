package mqtt

import "errors"

var (
	// ErrNotConnected is returned while no broker session is up.
	ErrNotConnected = errors.New("mqtt: no broker session")

	// ErrConnect is returned by Dial when the first session cannot be made.
	ErrConnect = errors.New("mqtt: connect failed")

	ErrPublish   = errors.New("mqtt: publish failed")
	ErrSubscribe = errors.New("mqtt: subscribe failed")

	// ErrInvalidTopic is returned for an empty topic, or a wildcard topic
	// passed to Publish.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")
)
