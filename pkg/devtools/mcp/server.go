package mcp

import (
	"context"
	"fmt"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/relaycore/reactor/pkg/devtools"
)

// Server wraps the MCP SDK server with reactor's devtools Store as the
// data source for resources and tools.
type Server struct {
	server *sdk.Server
	config *Config
	dt     *devtools.DevTools
	store  *devtools.Store

	notifier *Notifier
	subs     *SubscriptionManager

	mu sync.RWMutex
}

// New constructs a Server bound to dt, registering every resource and
// tool. The server is created but not started; call StartStdioServer or
// StartHTTPServer to begin accepting connections.
func New(config *Config, dt *devtools.DevTools) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("mcp: config cannot be nil")
	}
	if dt == nil {
		return nil, fmt.Errorf("mcp: devtools cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("mcp: invalid config: %w", err)
	}

	store := dt.GetStore()
	if store == nil {
		return nil, fmt.Errorf("mcp: devtools store is nil")
	}

	impl := &sdk.Implementation{Name: "reactor-devtools", Version: "1.0.0"}
	s := &Server{
		server: sdk.NewServer(impl, &sdk.ServerOptions{}),
		config: config,
		dt:     dt,
		store:  store,
		subs:   NewSubscriptionManager(50),
	}
	s.notifier = NewNotifier(s, config.SubscriptionThrottle)

	if err := s.registerStateResource(); err != nil {
		return nil, err
	}
	if err := s.registerEventsResource(); err != nil {
		return nil, err
	}
	if err := s.registerExportTool(); err != nil {
		return nil, err
	}
	if err := s.registerClearTool(); err != nil {
		return nil, err
	}
	if err := s.registerSubscriptionTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns the server's configuration.
func (s *Server) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Store returns the bound devtools Store.
func (s *Server) Store() *devtools.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Close detaches the server's notifier from the capture hook. Call
// after the transport has stopped serving.
func (s *Server) Close() {
	s.notifier.Stop()
}

// registerResource is the one shared helper every resource handler goes
// through, grounded on the teacher's identical registerResource helper.
func (s *Server) registerResource(uri, name, description string, handler func(context.Context, *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error)) {
	s.server.AddResource(
		&sdk.Resource{URI: uri, Name: name, Description: description, MIMEType: "application/json"},
		handler,
	)
}
