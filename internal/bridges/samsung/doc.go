// Package samsung implements the remote-control protocol of Samsung
// televisions over a raw TCP socket.
//
// A Session moves through
//
//	Disconnected -> Connecting -> ConnectedUnauthenticated -> Authenticated
//
// Authentication may wait for a person to approve the remote on the TV, so
// it uses a longer timeout than commands. Any I/O failure, a denied
// approval, or an approval timeout closes the socket and returns the session
// to Disconnected; the next call reconnects and authenticates again.
//
// Every message is a marker byte followed by two fields, the application
// name and the body. A field is one length byte, one reserved byte and that
// many raw bytes. Identity strings and key codes inside bodies are base64
// encoded; headers are not.
//
// Usage:
//
//	s := samsung.NewSession(samsung.Config{Host: "10.0.0.20", RemoteName: "winston"})
//	defer s.Close()
//	if err := s.SendKey(ctx, "KEY_POWEROFF"); err != nil {
//	    return err
//	}
package samsung
