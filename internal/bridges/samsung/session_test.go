package samsung

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeTV scripts the TV side of one connection.
type fakeTV func(t *testing.T, conn net.Conn)

// pipeDialer hands out net.Pipe connections served by the next script.
type pipeDialer struct {
	t       *testing.T
	mu      sync.Mutex
	scripts []fakeTV
	dials   int
	wg      sync.WaitGroup
}

func (d *pipeDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dials >= len(d.scripts) {
		d.dials++
		return nil, errors.New("connection refused")
	}
	script := d.scripts[d.dials]
	d.dials++

	client, server := net.Pipe()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer server.Close()
		script(d.t, server)
	}()
	return client, nil
}

func (d *pipeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func reply(t *testing.T, conn net.Conn, marker byte, body []byte) {
	t.Helper()
	msg, err := EncodeMessage("iapp.samsung", body)
	if err != nil {
		t.Errorf("encoding reply: %v", err)
		return
	}
	msg[0] = marker
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test pipe
	if _, err := conn.Write(msg); err != nil {
		t.Errorf("writing reply: %v", err)
	}
}

func expect(t *testing.T, conn net.Conn, prefix []byte) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test pipe
	msg, err := ReadMessage(conn)
	if err != nil {
		t.Errorf("reading request: %v", err)
		return Message{}
	}
	if !bytes.HasPrefix(msg.Body, prefix) {
		t.Errorf("request body = % x, want prefix % x", msg.Body, prefix)
	}
	return msg
}

// approve accepts the remote after a notification and a waiting reply.
func approve(t *testing.T, conn net.Conn) {
	expect(t, conn, authPrefix)
	reply(t, conn, 0x01, []byte{0x0A, 0x00, 0x15, 0x00, 0x00, 0x00})
	reply(t, conn, markerReply, replyWaiting)
	reply(t, conn, markerReply, replyAllowed)
}

func acceptKeys(n int) fakeTV {
	return func(t *testing.T, conn net.Conn) {
		approve(t, conn)
		for i := 0; i < n; i++ {
			expect(t, conn, keyPrefix)
			reply(t, conn, markerReply, []byte{0x00, 0x00, 0x00, 0x00})
		}
	}
}

func newTestSession(scripts ...fakeTV) (*Session, *pipeDialer, *[]State) {
	d := &pipeDialer{scripts: scripts}
	s := NewSession(Config{
		Host:        "10.0.0.20",
		RemoteName:  "winston",
		ClientIP:    "10.0.0.2",
		ReadTimeout: time.Second,
		AuthTimeout: time.Second,
	})
	s.SetDialer(d)
	var states []State
	s.SetStateListener(func(_, to State) { states = append(states, to) })
	return s, d, &states
}

func TestSession_SendKey(t *testing.T) {
	s, d, states := newTestSession(acceptKeys(2))
	d.t = t
	ctx := context.Background()

	if err := s.SendKey(ctx, "KEY_VOLUP"); err != nil {
		t.Fatalf("SendKey() error = %v", err)
	}
	if err := s.SendKey(ctx, "KEY_VOLDOWN"); err != nil {
		t.Fatalf("second SendKey() error = %v", err)
	}
	if s.State() != StateAuthenticated {
		t.Errorf("State() = %v, want AUTHENTICATED", s.State())
	}
	if d.Dials() != 1 {
		t.Errorf("dials = %d, want 1", d.Dials())
	}

	want := []State{StateConnecting, StateConnectedUnauthenticated, StateAuthenticated}
	if len(*states) != len(want) {
		t.Fatalf("states = %v, want %v", *states, want)
	}
	for i := range want {
		if (*states)[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, (*states)[i], want[i])
		}
	}

	s.Close()
	d.wg.Wait()
}

func TestSession_SendKeyAsyncSkipsRead(t *testing.T) {
	s, d, _ := newTestSession(func(t *testing.T, conn net.Conn) {
		approve(t, conn)
		msg := expect(t, conn, keyPrefix)
		key, _ := base64.StdEncoding.DecodeString(string(msg.Body[len(keyPrefix)+2:]))
		if string(key) != "KEY_MUTE" {
			t.Errorf("key = %q, want KEY_MUTE", key)
		}
		// No reply is sent; the client must not wait for one.
	})
	d.t = t

	if err := s.SendKeyAsync(context.Background(), "KEY_MUTE"); err != nil {
		t.Fatalf("SendKeyAsync() error = %v", err)
	}
	d.wg.Wait()
	s.Close()
}

func TestSession_DeniedResetsAndReconnects(t *testing.T) {
	deny := func(t *testing.T, conn net.Conn) {
		expect(t, conn, authPrefix)
		reply(t, conn, markerReply, replyDenied)
	}
	s, d, _ := newTestSession(deny, acceptKeys(1))
	d.t = t
	ctx := context.Background()

	err := s.SendKey(ctx, "KEY_POWER")
	if !errors.Is(err, ErrAuthDenied) {
		t.Fatalf("SendKey() error = %v, want ErrAuthDenied", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("State() = %v, want DISCONNECTED", s.State())
	}

	if err := s.SendKey(ctx, "KEY_POWER"); err != nil {
		t.Fatalf("SendKey() after denial error = %v", err)
	}
	if d.Dials() != 2 {
		t.Errorf("dials = %d, want 2 (fresh connection after denial)", d.Dials())
	}
	s.Close()
	d.wg.Wait()
}

func TestSession_TimeoutReply(t *testing.T) {
	s, d, _ := newTestSession(func(t *testing.T, conn net.Conn) {
		expect(t, conn, authPrefix)
		reply(t, conn, markerReply, []byte{0x65, 0x00})
	})
	d.t = t

	err := s.Authenticate(context.Background())
	if !errors.Is(err, ErrAuthTimeout) {
		t.Fatalf("Authenticate() error = %v, want ErrAuthTimeout", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("State() = %v, want DISCONNECTED", s.State())
	}
	d.wg.Wait()
}

func TestSession_NoApprovalTimesOut(t *testing.T) {
	s, d, _ := newTestSession(func(t *testing.T, conn net.Conn) {
		expect(t, conn, authPrefix)
		reply(t, conn, markerReply, replyWaiting)
		// Hold the connection open until the client gives up.
		buf := make([]byte, 1)
		conn.Read(buf) //nolint:errcheck // returns when the client closes
	})
	d.t = t

	err := s.Authenticate(context.Background())
	if !errors.Is(err, ErrAuthTimeout) {
		t.Fatalf("Authenticate() error = %v, want ErrAuthTimeout", err)
	}
	d.wg.Wait()
}

func TestSession_IOErrorResets(t *testing.T) {
	hangUp := func(t *testing.T, conn net.Conn) {
		approve(t, conn)
		expect(t, conn, keyPrefix)
		// Close without replying.
	}
	s, d, _ := newTestSession(hangUp, acceptKeys(1))
	d.t = t
	ctx := context.Background()

	if err := s.SendKey(ctx, "KEY_HOME"); err == nil {
		t.Fatal("SendKey() expected error after hang-up, got nil")
	}
	if s.State() != StateDisconnected {
		t.Errorf("State() = %v, want DISCONNECTED", s.State())
	}
	if err := s.SendKey(ctx, "KEY_HOME"); err != nil {
		t.Fatalf("SendKey() after reset error = %v", err)
	}
	if d.Dials() != 2 {
		t.Errorf("dials = %d, want 2", d.Dials())
	}
	s.Close()
	d.wg.Wait()
}

func TestSession_ConnectFailure(t *testing.T) {
	s, d, _ := newTestSession()
	d.t = t

	err := s.EnsureReady(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("EnsureReady() error = %v, want ErrConnectionFailed", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("State() = %v, want DISCONNECTED", s.State())
	}
}

func TestSession_Closed(t *testing.T) {
	s, _, _ := newTestSession()
	s.Close()
	if err := s.SendKey(context.Background(), "KEY_POWER"); !errors.Is(err, ErrClosed) {
		t.Errorf("SendKey() after Close error = %v, want ErrClosed", err)
	}
}
