package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/winstonhome/winston/internal/channel"
)

// Prefix is the literal first path segment of every RPC path.
const Prefix = "io"

const faviconPath = "favicon.ico"

// Logger defines the logging interface used by the Router.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver finds a local module by key. *module.Registry implements it.
type Resolver interface {
	Lookup(key string) (channel.Module, bool)
}

// Address identifies one value.
type Address struct {
	Module  string
	Channel string
	Index   int
	// Name is the value name at Index.
	Name string
}

// Path returns the RPC path of the value, without the io/ prefix.
func (a Address) Path() string {
	return a.Module + "/" + a.Channel + "/" + strconv.Itoa(a.Index)
}

// Observer is told about successful reads and writes.
type Observer interface {
	ValueRead(ctx context.Context, addr Address, value any)
	ValueWritten(ctx context.Context, addr Address, payload string)
}

// Metrics records routing outcomes.
type Metrics interface {
	RequestHandled(op string, kind channel.Kind, elapsed time.Duration)
	ProxyForwarded(node string, err error)
}

// Response is the outcome of Handle.
type Response struct {
	// Status is the HTTP status code.
	Status int
	Body   string
	Kind   channel.Kind
	// Quiet marks responses that should not be logged.
	Quiet bool
}

// Router dispatches RPC paths to local modules or remote nodes.
type Router struct {
	resolver  Resolver
	nodes     NodeMap
	requester Requester
	observer  Observer
	metrics   Metrics
	logger    Logger
}

// NewRouter creates a router. nodes may be nil, as on a node daemon, in
// which case nothing is forwarded and requester may also be nil.
func NewRouter(resolver Resolver, nodes NodeMap, requester Requester) *Router {
	return &Router{
		resolver:  resolver,
		nodes:     nodes,
		requester: requester,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// SetObserver sets the read/write observer.
func (r *Router) SetObserver(o Observer) {
	r.observer = o
}

// SetMetrics sets the metrics recorder.
func (r *Router) SetMetrics(m Metrics) {
	r.metrics = m
}

// StatusFor maps a failure kind to an HTTP status.
func StatusFor(kind channel.Kind) int {
	switch kind {
	case channel.KindNone:
		return http.StatusOK
	case channel.KindNotFound:
		return http.StatusNotFound
	case channel.KindRouting:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// Handle executes rawPath, an escaped URL path with or without a leading
// slash, and never panics on bad input. Cancellation of ctx is ignored: a
// started read, write, cascade or proxy call runs until it completes or its
// I/O times out.
func (r *Router) Handle(ctx context.Context, rawPath string) Response {
	ctx = context.WithoutCancel(ctx)
	rawPath = strings.TrimPrefix(rawPath, "/")
	if rawPath == faviconPath {
		return Response{Status: http.StatusOK, Quiet: true}
	}

	start := time.Now()
	op, body, err := r.dispatch(ctx, rawPath)
	kind := channel.Classify(err)
	if r.metrics != nil {
		r.metrics.RequestHandled(op, kind, time.Since(start))
	}

	if err != nil {
		r.logger.Debug("rpc request failed", "path", rawPath, "kind", kind.String(), "error", err)
		return Response{Status: StatusFor(kind), Body: err.Error(), Kind: kind}
	}
	return Response{Status: http.StatusOK, Body: body}
}

// Execute runs an action path such as "wemo/switch1/0/1" and returns its
// failure, if any. It is used by group triggers to re-enter the router.
func (r *Router) Execute(ctx context.Context, action string) error {
	_, _, err := r.dispatch(ctx, Prefix+"/"+strings.TrimPrefix(action, "/"))
	return err
}

// Operation names reported to Metrics.
const (
	OpMalformed = "malformed"
	OpProxy     = "proxy"
	OpList      = "list"
	OpCount     = "count"
	OpRead      = "read"
	OpWrite     = "write"
)

func (r *Router) dispatch(ctx context.Context, rawPath string) (string, string, error) {
	rest, ok := strings.CutPrefix(rawPath, Prefix+"/")
	if !ok {
		return OpMalformed, "", fmt.Errorf("%w: path must start with %s/", channel.ErrMalformed, Prefix)
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		return OpMalformed, "", fmt.Errorf("%w: module or node key required", channel.ErrMalformed)
	}

	key, tail, _ := strings.Cut(rest, "/")
	key, err := unescape(key)
	if err != nil {
		return OpMalformed, "", err
	}
	if key == "" {
		return OpMalformed, "", fmt.Errorf("%w: module or node key required", channel.ErrMalformed)
	}

	if r.nodes != nil {
		if node, ok := r.nodes.Lookup(key); ok {
			body, err := r.forward(ctx, node, tail)
			return OpProxy, body, err
		}
	}

	mod, ok := r.resolver.Lookup(key)
	if !ok {
		return OpMalformed, "", fmt.Errorf("%w: unknown module or node %q", channel.ErrNotFound, key)
	}

	segments, err := splitSegments(tail)
	if err != nil {
		return OpMalformed, "", err
	}

	switch len(segments) {
	case 0:
		return OpList, "", fmt.Errorf("%w: channel id required; channels: %s",
			channel.ErrMalformed, strings.Join(channelIDs(mod), ", "))
	case 1:
		ch, err := lookupChannel(mod, segments[0])
		if err != nil {
			return OpCount, "", err
		}
		return OpCount, strconv.Itoa(len(ch.Values())), nil
	case 2:
		addr, v, err := r.resolveValue(mod, segments)
		if err != nil {
			return OpRead, "", err
		}
		val, err := v.Read(ctx)
		if err != nil {
			return OpRead, "", fmt.Errorf("reading %s: %w", addr.Path(), err)
		}
		if r.observer != nil {
			r.observer.ValueRead(ctx, addr, val)
		}
		return OpRead, channel.Render(val), nil
	case 3:
		addr, v, err := r.resolveValue(mod, segments)
		if err != nil {
			return OpWrite, "", err
		}
		if err := v.WriteRaw(ctx, segments[2]); err != nil {
			return OpWrite, "", fmt.Errorf("writing %s: %w", addr.Path(), err)
		}
		if r.observer != nil {
			r.observer.ValueWritten(ctx, addr, segments[2])
		}
		return OpWrite, "OK", nil
	default:
		return OpMalformed, "", fmt.Errorf("%w: too many path segments", channel.ErrMalformed)
	}
}

// forward proxies tail to node's router and returns the body verbatim.
func (r *Router) forward(ctx context.Context, node Node, tail string) (string, error) {
	target := node.BaseURL() + "/" + Prefix + "/" + tail
	if r.requester == nil {
		return "", fmt.Errorf("%w: no requester configured for node %q", channel.ErrRouting, node.Name)
	}

	body, err := r.requester.Request(ctx, target)
	if r.metrics != nil {
		r.metrics.ProxyForwarded(node.Name, err)
	}
	if err != nil {
		r.logger.Warn("node request failed", "node", node.Name, "url", target, "error", err)
		return "", fmt.Errorf("%w: node %q: %w", channel.ErrRouting, node.Name, err)
	}
	return body, nil
}

func (r *Router) resolveValue(mod channel.Module, segments []string) (Address, channel.Value, error) {
	ch, err := lookupChannel(mod, segments[0])
	if err != nil {
		return Address{}, nil, err
	}
	idx, err := strconv.Atoi(segments[1])
	if err != nil {
		return Address{}, nil, fmt.Errorf("%w: value index %q is not a number", channel.ErrMalformed, segments[1])
	}
	v, err := channel.ValueAt(ch, idx)
	if err != nil {
		return Address{}, nil, err
	}
	return Address{Module: mod.Type(), Channel: ch.ID(), Index: idx, Name: v.Name()}, v, nil
}

func lookupChannel(mod channel.Module, id string) (channel.Channel, error) {
	ch, ok := mod.Channel(id)
	if !ok {
		return nil, fmt.Errorf("%w: channel %q in module %q", channel.ErrNotFound, id, mod.Type())
	}
	return ch, nil
}

func channelIDs(mod channel.Module) []string {
	chs := mod.Channels()
	ids := make([]string, len(chs))
	for i, ch := range chs {
		ids[i] = ch.ID()
	}
	return ids
}

// splitSegments splits an escaped path tail and unescapes each segment, so
// an encoded slash stays inside its segment.
func splitSegments(tail string) ([]string, error) {
	if tail == "" {
		return nil, nil
	}
	parts := strings.Split(tail, "/")
	for i, p := range parts {
		s, err := unescape(p)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return nil, fmt.Errorf("%w: empty path segment", channel.ErrMalformed)
		}
		parts[i] = s
	}
	return parts, nil
}

func unescape(s string) (string, error) {
	out, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", channel.ErrMalformed, err)
	}
	return out, nil
}
