// Package mcp bridges pkg/devtools' Store to AI agents over the Model
// Context Protocol: resources expose the current handle snapshots and
// the recent event log, tools let an agent clear history or export a
// full dump, and a subscription layer queues resource-updated
// notifications as new StateChange events arrive, for the host to drain.
//
// Grounded on the teacher's pkg/bubbly/devtools/mcp package (server,
// config, resources, tools, subscriptions, transports, auth,
// ratelimit), narrowed from a component-tree inspector to this module's
// handle/event domain and consistently named (the teacher's own files
// disagree on MCPServer vs. Server / MCPConfig vs. Config; this package
// picks Server/Config throughout).
package mcp

import (
	"fmt"
	"strings"
	"time"
)

// Transport selects which transport(s) a Server exposes. Bitwise OR'd,
// mirroring the teacher's MCPTransportStdio|MCPTransportHTTP scheme.
type Transport int

const (
	TransportStdio Transport = 1 << iota
	TransportHTTP
)

func (t Transport) String() string {
	if t == 0 {
		return "none"
	}
	var parts []string
	if t&TransportStdio != 0 {
		parts = append(parts, "stdio")
	}
	if t&TransportHTTP != 0 {
		parts = append(parts, "http")
	}
	return strings.Join(parts, "|")
}

// Config configures a Server's transport, security, and performance
// knobs. All fields have sensible defaults via DefaultConfig.
type Config struct {
	Transport Transport

	HTTPHost string
	HTTPPort int

	EnableAuth bool
	AuthToken  string

	RateLimit            int
	MaxClients           int
	SubscriptionThrottle time.Duration

	MaxEvents int
}

// DefaultConfig returns a Config suited to local development: stdio
// only, no auth, a 100ms subscription throttle, 60req/s rate limit.
func DefaultConfig() *Config {
	return &Config{
		Transport:            TransportStdio,
		HTTPHost:             "localhost",
		HTTPPort:             8765,
		RateLimit:            60,
		MaxClients:           5,
		SubscriptionThrottle: 100 * time.Millisecond,
		MaxEvents:            1000,
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Transport&TransportHTTP != 0 {
		if c.HTTPPort < 0 || c.HTTPPort > 65535 {
			return fmt.Errorf("mcp: HTTP port must be between 0 and 65535, got %d", c.HTTPPort)
		}
		if c.HTTPHost == "" {
			return fmt.Errorf("mcp: HTTP host cannot be empty when HTTP transport is enabled")
		}
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("mcp: max clients must be positive, got %d", c.MaxClients)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("mcp: rate limit must be positive, got %d", c.RateLimit)
	}
	if c.SubscriptionThrottle < 0 {
		return fmt.Errorf("mcp: subscription throttle must be non-negative")
	}
	if c.EnableAuth && c.AuthToken == "" {
		return fmt.Errorf("mcp: auth token required when auth is enabled")
	}
	return nil
}
