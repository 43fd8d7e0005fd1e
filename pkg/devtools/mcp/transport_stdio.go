package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// StartStdioServer serves MCP over stdin/stdout, blocking until the
// client disconnects or ctx is canceled. Grounded on the teacher's
// StartStdioServer (transport_stdio.go): construct a StdioTransport,
// Connect, then wait on the resulting session.
func (s *Server) StartStdioServer(ctx context.Context) error {
	transport := &sdk.StdioTransport{}
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp: failed to connect stdio transport: %w", err)
	}
	if err := session.Wait(); err != nil {
		return fmt.Errorf("mcp: stdio session ended with error: %w", err)
	}
	return nil
}
