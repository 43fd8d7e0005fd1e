package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ExportResult is returned by the export_state tool: a full dump of
// every handle snapshot plus its recent event history, suitable for an
// agent to save and diff across runs.
type ExportResult struct {
	State     StateSnapshot     `json:"state"`
	Events    []map[string]any  `json:"events"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) registerExportTool() error {
	tool := &sdk.Tool{
		Name:        "export_state",
		Description: "Export a full snapshot of every handle and its recent event history as JSON.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}
	s.server.AddTool(tool, s.handleExportState)
	return nil
}

func (s *Server) handleExportState(_ context.Context, _ *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	store := s.Store()

	handles := make([]HandleState, 0)
	for _, h := range store.AllHandles() {
		entry := HandleState{HandleID: h.HandleID, Kind: string(h.Kind)}
		if v, ok := store.Snapshot(h.HandleID); ok {
			entry.Value = v
		}
		handles = append(handles, entry)
	}

	events := store.Events("", s.Config().MaxEvents)
	eventMaps := make([]map[string]any, 0, len(events))
	for _, e := range events {
		eventMaps = append(eventMaps, map[string]any{
			"seq_id": e.SeqID, "kind": e.Kind, "handle_id": e.HandleID,
			"detail": e.Detail, "timestamp": e.Timestamp,
		})
	}

	result := ExportResult{
		State:     StateSnapshot{Handles: handles, Timestamp: time.Now()},
		Events:    eventMaps,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal export: %v", err)), nil
	}
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: string(data)}}}, nil
}

func errorResult(message string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: message}},
		IsError: true,
	}
}
