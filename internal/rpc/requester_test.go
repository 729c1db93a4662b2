package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

func TestHTTPRequester(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/io/relay/door/0":
			w.Write([]byte("false")) //nolint:errcheck // test server
		default:
			http.Error(w, "not found: plugin", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	req := NewHTTPRequester(2 * time.Second)
	ctx := context.Background()

	body, err := req.Request(ctx, srv.URL+"/io/relay/door/0")
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if body != "false" {
		t.Errorf("body = %q, want %q", body, "false")
	}

	_, err = req.Request(ctx, srv.URL+"/io/nope")
	if !errors.Is(err, ErrRemoteStatus) {
		t.Fatalf("Request() error = %v, want ErrRemoteStatus", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("StatusError = %+v, want code 404", se)
	}
}

func TestHTTPRequester_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPRequester(time.Second).Request(context.Background(), url+"/io/x")
	if err == nil {
		t.Error("Request() to closed server expected error, got nil")
	}
}

func TestRouter_ProxyIgnoresCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("OK")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	addr, port := splitHostPort(t, srv.URL)
	nodes := NodeMap{"garage": {Name: "garage", Address: addr, Port: port}}
	router := NewRouter(testResolver{}, nodes, NewHTTPRequester(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp := router.Handle(ctx, "io/garage/relay/door/0/1")
	if resp.Status != http.StatusOK || resp.Body != "OK" {
		t.Errorf("Handle() = %d %q, want 200 OK", resp.Status, resp.Body)
	}
}

func TestRouter_ProxyTimeoutIsRouting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	addr, port := splitHostPort(t, srv.URL)
	nodes := NodeMap{"garage": {Name: "garage", Address: addr, Port: port}}
	router := NewRouter(testResolver{}, nodes, NewHTTPRequester(50*time.Millisecond))

	resp := router.Handle(context.Background(), "io/garage/relay/door/0")
	if resp.Status != http.StatusBadGateway {
		t.Errorf("Handle() status = %d, want 502 once the I/O timeout expires", resp.Status)
	}
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return u.Hostname(), port
}

func TestNodeMap(t *testing.T) {
	nodes := NewNodeMap(map[string]config.NodeConfig{
		"garage": {Address: "10.0.0.12", Port: 8081},
		"shed":   {Address: "shed.local", Port: 8443, TLS: true},
	})

	tests := []struct {
		name string
		want string
	}{
		{name: "garage", want: "http://10.0.0.12:8081"},
		{name: "shed", want: "https://shed.local:8443"},
	}
	for _, tt := range tests {
		n, ok := nodes.Lookup(tt.name)
		if !ok {
			t.Fatalf("Lookup(%q) not found", tt.name)
		}
		if got := n.BaseURL(); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if _, ok := nodes.Lookup("ghost"); ok {
		t.Error("Lookup(ghost) found, want missing")
	}
}
