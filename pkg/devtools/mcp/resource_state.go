package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// StateSnapshot is the payload of the reactor://state/snapshot resource:
// every handle currently known to the Store, with its live snapshot
// value attached.
type StateSnapshot struct {
	Handles   []HandleState `json:"handles"`
	Timestamp time.Time     `json:"timestamp"`
}

// HandleState pairs a handle's identity with its current snapshot.
type HandleState struct {
	HandleID string `json:"handle_id"`
	Kind     string `json:"kind"`
	Value    any    `json:"value,omitempty"`
}

func (s *Server) registerStateResource() error {
	s.registerResource(
		"reactor://state/snapshot",
		"state-snapshot",
		"Current snapshot of every handle known to the devtools store",
		s.readStateSnapshot,
	)
	return nil
}

func (s *Server) readStateSnapshot(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	store := s.Store()
	handles := make([]HandleState, 0)
	for _, h := range store.AllHandles() {
		entry := HandleState{HandleID: h.HandleID, Kind: string(h.Kind)}
		if v, ok := store.Snapshot(h.HandleID); ok {
			entry.Value = v
		}
		handles = append(handles, entry)
	}

	data, err := json.MarshalIndent(StateSnapshot{Handles: handles, Timestamp: time.Now()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal state snapshot: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
