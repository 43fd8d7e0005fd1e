package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ClearEventLogParams mirrors the teacher's confirm-gated destructive
// tool pattern: a boolean flag required to be true to prevent an agent
// clearing history by accident.
type ClearEventLogParams struct {
	Confirm bool `json:"confirm"`
}

// ClearResult reports how many events were discarded.
type ClearResult struct {
	Cleared   int       `json:"cleared"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) registerClearTool() error {
	tool := &sdk.Tool{
		Name:        "clear_event_log",
		Description: "Clear the devtools event log. Requires confirmation to prevent accidental data loss.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"confirm": map[string]any{
					"type":        "boolean",
					"description": "Must be true to confirm the destructive operation",
				},
			},
			"required": []string{"confirm"},
		},
	}
	s.server.AddTool(tool, s.handleClearEventLog)
	return nil
}

func (s *Server) handleClearEventLog(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var params ClearEventLogParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult(fmt.Sprintf("failed to parse parameters: %v", err)), nil
	}
	if !params.Confirm {
		return errorResult("confirmation required: set 'confirm' to true to clear the event log"), nil
	}

	cleared := s.Store().Clear()
	data, err := json.MarshalIndent(ClearResult{Cleared: cleared, Timestamp: time.Now()}, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: string(data)}}}, nil
}
