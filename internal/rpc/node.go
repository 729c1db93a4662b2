package rpc

import (
	"net"
	"strconv"

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

// Node is a remote node daemon.
type Node struct {
	Name    string
	Address string
	Port    int
	TLS     bool
}

// BaseURL returns the scheme, host and port of the node, without a
// trailing slash.
func (n Node) BaseURL() string {
	scheme := "http"
	if n.TLS {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(n.Address, strconv.Itoa(n.Port))
}

// NodeMap maps node names to nodes. It is built once and only read.
type NodeMap map[string]Node

// NewNodeMap builds a NodeMap from configuration.
func NewNodeMap(nodes map[string]config.NodeConfig) NodeMap {
	m := make(NodeMap, len(nodes))
	for name, n := range nodes {
		m[name] = Node{
			Name:    name,
			Address: n.Address,
			Port:    n.Port,
			TLS:     n.TLS,
		}
	}
	return m
}

// Lookup returns the node called name.
func (m NodeMap) Lookup(name string) (Node, bool) {
	n, ok := m[name]
	return n, ok
}
