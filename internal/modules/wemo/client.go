package wemo

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultPort    = "49153"
	controlPath    = "/upnp/control/basicevent1"
	serviceType    = "urn:Belkin:service:basicevent:1"
	maxReplySize   = 64 * 1024
	defaultTimeout = 5 * time.Second
)

// ErrBadReply is returned when the switch answers with something other
// than a BinaryState.
var ErrBadReply = errors.New("wemo: unexpected reply")

// Client talks to one switch.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for address, which is host or host:port.
func NewClient(address string, timeout time.Duration) *Client {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, defaultPort)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: "http://" + address + controlPath,
		http:     &http.Client{Timeout: timeout},
	}
}

// envelope is the SOAP reply; only BinaryState is of interest.
type envelope struct {
	Body struct {
		Response struct {
			BinaryState string `xml:"BinaryState"`
		} `xml:",any"`
	} `xml:"Body"`
}

// State reports whether the switch is on. Standby (8) counts as on.
func (c *Client) State(ctx context.Context) (bool, error) {
	state, err := c.call(ctx, "GetBinaryState", "")
	if err != nil {
		return false, err
	}
	return state != "0", nil
}

// SetState switches the relay.
func (c *Client) SetState(ctx context.Context, on bool) error {
	arg := "0"
	if on {
		arg = "1"
	}
	_, err := c.call(ctx, "SetBinaryState", "<BinaryState>"+arg+"</BinaryState>")
	return err
}

func (c *Client) call(ctx context.Context, action, args string) (string, error) {
	body := `<?xml version="1.0" encoding="utf-8"?>` +
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
		`<s:Body><u:` + action + ` xmlns:u="` + serviceType + `">` + args + `</u:` + action + `></s:Body></s:Envelope>`

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", `"`+serviceType+"#"+action+`"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return "", fmt.Errorf("%s: reading reply: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: HTTP %d", action, resp.StatusCode)
	}

	var env envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBadReply, action, err)
	}
	// Newer firmware appends "|<timestamp>|..." to the state.
	state, _, _ := strings.Cut(strings.TrimSpace(env.Body.Response.BinaryState), "|")
	if state == "" {
		return "", fmt.Errorf("%w: %s: no BinaryState", ErrBadReply, action)
	}
	return state, nil
}
