package samsung

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
)

// maxFieldLen is the largest payload a one-byte length can describe.
const maxFieldLen = 255

// Marker bytes.
const (
	markerReply byte = 0x00
)

// Message is one frame on the wire.
type Message struct {
	// Marker is 0x00 for replies; other values are notifications.
	Marker byte
	App    string
	Body   []byte
}

// IsNotification reports whether the frame is unrelated to our requests.
func (m Message) IsNotification() bool {
	return m.Marker != markerReply
}

// appendField appends length, reserved byte and data.
func appendField(dst, data []byte) ([]byte, error) {
	if len(data) > maxFieldLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFieldTooLong, len(data))
	}
	dst = append(dst, byte(len(data)), 0x00)
	return append(dst, data...), nil
}

// appendB64Field appends s base64-encoded as a field.
func appendB64Field(dst []byte, s string) ([]byte, error) {
	return appendField(dst, []byte(base64.StdEncoding.EncodeToString([]byte(s))))
}

// EncodeMessage frames body for application app.
func EncodeMessage(app string, body []byte) ([]byte, error) {
	out := make([]byte, 0, 1+2+len(app)+2+len(body))
	out = append(out, markerReply)
	out, err := appendField(out, []byte(app))
	if err != nil {
		return nil, fmt.Errorf("app name: %w", err)
	}
	out, err = appendField(out, body)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	return out, nil
}

// ReadMessage reads one frame.
func ReadMessage(r io.Reader) (Message, error) {
	var marker [1]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return Message{}, fmt.Errorf("read marker: %w", err)
	}
	app, err := readField(r)
	if err != nil {
		return Message{}, fmt.Errorf("read app: %w", err)
	}
	body, err := readField(r)
	if err != nil {
		return Message{}, fmt.Errorf("read body: %w", err)
	}
	return Message{Marker: marker[0], App: string(app), Body: body}, nil
}

func readField(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	data := make([]byte, int(hdr[0]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Auth body prefix and reply bodies.
var (
	authPrefix    = []byte{0x64, 0x00}
	keyPrefix     = []byte{0x00, 0x00, 0x00}
	replyAllowed  = []byte{0x64, 0x00, 0x01, 0x00}
	replyDenied   = []byte{0x64, 0x00, 0x00, 0x00}
	replyWaiting  = []byte{0x0A, 0x00, 0x02, 0x00, 0x00, 0x00}
	replyTimedOut = byte(0x65)
)

// AuthBody builds the authentication request body.
func AuthBody(clientIP, clientID, remoteName string) ([]byte, error) {
	body := append([]byte(nil), authPrefix...)
	var err error
	for _, s := range []string{clientIP, clientID, remoteName} {
		if body, err = appendB64Field(body, s); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// KeyBody builds the body of a key press.
func KeyBody(key string) ([]byte, error) {
	return appendB64Field(append([]byte(nil), keyPrefix...), key)
}

// AuthResult is the outcome carried by an authentication reply.
type AuthResult int

// Authentication outcomes.
const (
	AuthPending AuthResult = iota
	AuthAllowed
	AuthDenied
	AuthTimedOut
)

// String returns the upper-case result name.
func (r AuthResult) String() string {
	switch r {
	case AuthAllowed:
		return "ALLOWED"
	case AuthDenied:
		return "DENIED"
	case AuthTimedOut:
		return "TIMEOUT"
	default:
		return "PENDING"
	}
}

// ParseAuthReply classifies a reply body. Unrecognised bodies, including
// the "waiting for approval" reply, are AuthPending.
func ParseAuthReply(body []byte) AuthResult {
	switch {
	case bytes.Equal(body, replyAllowed):
		return AuthAllowed
	case bytes.Equal(body, replyDenied):
		return AuthDenied
	case bytes.Equal(body, replyWaiting):
		return AuthPending
	case len(body) > 0 && body[0] == replyTimedOut:
		return AuthTimedOut
	default:
		return AuthPending
	}
}
