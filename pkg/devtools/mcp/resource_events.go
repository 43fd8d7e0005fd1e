package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/relaycore/reactor/pkg/devtools"
)

// EventsLog is the payload of the reactor://events/log resource.
type EventsLog struct {
	Events     []devtools.EventRecord `json:"events"`
	TotalCount int                    `json:"total_count"`
	Timestamp  time.Time              `json:"timestamp"`
}

func (s *Server) registerEventsResource() error {
	s.registerResource(
		"reactor://events/log",
		"events-log",
		"Recent engine events observed across every handle",
		s.readEventsLog,
	)
	return nil
}

func (s *Server) readEventsLog(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	events := s.Store().Events("", s.Config().MaxEvents)

	data, err := json.MarshalIndent(EventsLog{Events: events, TotalCount: len(events), Timestamp: time.Now()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal events log: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
