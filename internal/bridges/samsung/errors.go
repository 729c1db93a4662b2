package samsung

import "errors"

// Domain errors for the samsung package.
var (
	// ErrConnectionFailed is returned when the TV cannot be reached.
	ErrConnectionFailed = errors.New("samsung: connection failed")

	// ErrAuthDenied is returned when the remote is rejected on the TV.
	ErrAuthDenied = errors.New("samsung: authentication denied")

	// ErrAuthTimeout is returned when nobody approved the remote in time.
	ErrAuthTimeout = errors.New("samsung: authentication timed out")

	// ErrFieldTooLong is returned when a field exceeds 255 bytes.
	ErrFieldTooLong = errors.New("samsung: field too long")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("samsung: session closed")
)
