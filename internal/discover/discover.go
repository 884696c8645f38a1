/*
 * Copyright (c) 2026 Rowgate Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package discover provides mDNS/DNS-SD discovery of row store quorum nodes.

OVERVIEW:
=========
rowgate can locate the row store quorum via mDNS (multicast DNS) on local
networks. This enables zero-configuration client setup where the quorum
address never has to be written down.

SERVICE TYPE:
=============
Row store nodes advertise themselves as: _rowstore._tcp.local.

Each node publishes:
- Instance name: <node-id>._rowstore._tcp.local.
- Port: client port (default 8920)
- TXT records: node_id, quorum, version

USAGE:
======

	browser := discover.NewBrowser(discover.Config{Enabled: true})
	nodes, err := browser.Discover(5 * time.Second)
*/
package discover

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"rowgate/internal/logging"
)

const (
	// ServiceType is the mDNS service type advertised by row store nodes.
	ServiceType = "_rowstore._tcp"

	// DefaultTimeout is the default timeout for node discovery.
	DefaultTimeout = 5 * time.Second
)

// Node represents a row store node found via service discovery.
type Node struct {
	NodeID       string
	Quorum       string
	Addr         string // host:port for client traffic
	Version      string
	DiscoveredAt time.Time
}

// Config holds configuration for quorum discovery.
type Config struct {
	Quorum  string // quorum name to filter on; empty matches all
	Enabled bool
}

// Browser queries the local network for row store nodes and caches what
// it finds.
type Browser struct {
	config Config
	logger *logging.Logger

	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewBrowser creates a new quorum browser.
func NewBrowser(config Config) *Browser {
	return &Browser{
		config: config,
		logger: logging.NewLogger("discover"),
		nodes:  make(map[string]*Node),
	}
}

// Discover queries the network for row store nodes. Nodes belonging to a
// different quorum than the configured one are dropped.
func (b *Browser) Discover(timeout time.Duration) ([]*Node, error) {
	if !b.config.Enabled {
		return nil, nil
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	entriesCh := make(chan *mdns.ServiceEntry, 10)
	var nodes []*Node
	var mu sync.Mutex

	go func() {
		for entry := range entriesCh {
			node := parseServiceEntry(entry)
			if node == nil {
				continue
			}
			if b.config.Quorum != "" && node.Quorum != "" && node.Quorum != b.config.Quorum {
				continue
			}
			mu.Lock()
			nodes = append(nodes, node)
			mu.Unlock()

			b.mu.Lock()
			b.nodes[node.NodeID] = node
			b.mu.Unlock()
		}
	}()

	params := &mdns.QueryParam{
		Service:             ServiceType,
		Domain:              "local",
		Timeout:             timeout,
		Entries:             entriesCh,
		WantUnicastResponse: true,
	}

	if err := mdns.Query(params); err != nil {
		return nil, fmt.Errorf("mDNS query failed: %w", err)
	}

	close(entriesCh)

	b.logger.Debug("Quorum discovery pass complete", "found", len(nodes))
	return nodes, nil
}

// DiscoverWithContext discovers nodes with context cancellation support.
func (b *Browser) DiscoverWithContext(ctx context.Context, timeout time.Duration) ([]*Node, error) {
	resultCh := make(chan []*Node, 1)
	errCh := make(chan error, 1)

	go func() {
		nodes, err := b.Discover(timeout)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- nodes
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, err
	case nodes := <-resultCh:
		return nodes, nil
	}
}

// CachedNodes returns previously discovered nodes.
func (b *Browser) CachedNodes() []*Node {
	b.mu.RLock()
	defer b.mu.RUnlock()

	nodes := make([]*Node, 0, len(b.nodes))
	for _, node := range b.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}

// Addrs returns the client addresses of the given nodes, suitable for a
// quorum configuration value.
func Addrs(nodes []*Node) []string {
	addrs := make([]string, 0, len(nodes))
	for _, node := range nodes {
		addrs = append(addrs, node.Addr)
	}
	return addrs
}

// parseServiceEntry parses an mDNS service entry into a Node.
func parseServiceEntry(entry *mdns.ServiceEntry) *Node {
	if entry == nil {
		return nil
	}

	node := &Node{
		DiscoveredAt: time.Now(),
	}

	var ip string
	if entry.AddrV4 != nil {
		ip = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		ip = entry.AddrV6.String()
	}
	if ip == "" {
		return nil
	}
	node.Addr = fmt.Sprintf("%s:%d", ip, entry.Port)

	for _, txt := range entry.InfoFields {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		switch key {
		case "node_id":
			node.NodeID = value
		case "quorum":
			node.Quorum = value
		case "version":
			node.Version = value
		}
	}

	if node.NodeID == "" {
		node.NodeID = entry.Name
	}

	return node
}
