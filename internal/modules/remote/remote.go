// Package remote provides the "winston" module: channels that alias a
// channel on a node daemon. Reads and writes are sent to the node's router,
// so node hardware can be grouped, renamed and triggered like any local
// device.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/module"
	"github.com/winstonhome/winston/internal/rpc"
)

// Type is the module key.
const Type = "winston"

// Module holds aliases of remote channels.
type Module struct {
	module.Base
	nodes     rpc.NodeMap
	requester rpc.Requester
}

var _ module.Instance = (*Module)(nil)

// New creates an empty alias module resolving node names through nodes.
func New(nodes rpc.NodeMap, requester rpc.Requester) *Module {
	return &Module{
		Base:      module.NewBase(Type),
		nodes:     nodes,
		requester: requester,
	}
}

// Initialize reads the "node", "plugin" and "channel" parameters and one
// "value" declaration (name:kind:mode) per remote value, in the remote
// value order.
func (m *Module) Initialize(_ context.Context, channels []module.ChannelParams) error {
	for _, cp := range channels {
		nodeName, err := cp.Params.Require("node")
		if err != nil {
			return err
		}
		node, ok := m.nodes.Lookup(nodeName)
		if !ok {
			return fmt.Errorf("%w: channel %q: unknown node %q", module.ErrInvalidParameter, cp.ID, nodeName)
		}
		plugin, err := cp.Params.Require("plugin")
		if err != nil {
			return err
		}
		target := cp.Params.String("channel", cp.ID)

		decls := cp.Params.All("value")
		if len(decls) == 0 {
			return fmt.Errorf("%w: channel %q: value", module.ErrMissingParameter, cp.ID)
		}

		base := node.BaseURL() + "/" + rpc.Prefix + "/" + url.PathEscape(plugin) + "/" + url.PathEscape(target) + "/"
		values := make([]channel.Value, 0, len(decls))
		for i, decl := range decls {
			spec, err := module.ParseValueSpec(decl)
			if err != nil {
				return fmt.Errorf("channel %q: %w", cp.ID, err)
			}
			valueURL := base + strconv.Itoa(i)
			values = append(values, spec.Bind(m.getter(node.Name, valueURL), m.setter(node.Name, valueURL)))
		}

		if err := m.Add(channel.New(cp.ID, channel.TypeRemote, values...)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) getter(node, valueURL string) module.RawGetter {
	return func(ctx context.Context) (string, error) {
		body, err := m.requester.Request(ctx, valueURL)
		if err != nil {
			return "", fmt.Errorf("%w: node %q: %w", channel.ErrBackend, node, err)
		}
		return body, nil
	}
}

func (m *Module) setter(node, valueURL string) module.RawSetter {
	return func(ctx context.Context, raw string) error {
		if _, err := m.requester.Request(ctx, valueURL+"/"+url.PathEscape(raw)); err != nil {
			return fmt.Errorf("%w: node %q: %w", channel.ErrBackend, node, err)
		}
		return nil
	}
}
