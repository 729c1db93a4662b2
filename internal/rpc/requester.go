package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRemoteStatus is returned when a remote endpoint answers with a
// non-success status.
var ErrRemoteStatus = errors.New("rpc: remote returned non-success status")

// maxResponseBytes caps the body read from a remote endpoint.
const maxResponseBytes = 1 << 20

// Requester issues a GET and returns the response body.
type Requester interface {
	Request(ctx context.Context, url string) (string, error)
}

// StatusError describes a non-2xx reply. It matches ErrRemoteStatus.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s returned %d", e.URL, e.Code)
	}
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.Code, body)
}

// Is reports whether target is ErrRemoteStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrRemoteStatus
}

// HTTPRequester is a Requester over net/http.
type HTTPRequester struct {
	client *http.Client
}

// NewHTTPRequester creates a requester. A zero timeout means no timeout.
func NewHTTPRequester(timeout time.Duration) *HTTPRequester {
	return &HTTPRequester{
		client: &http.Client{Timeout: timeout},
	}
}

// Request performs a single GET. There is no retry.
func (r *HTTPRequester) Request(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, Code: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}
