package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme = "zrbridge://"

	// historyLimit bounds the passes returned by the history resource.
	historyLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "Recent sync passes, most recent first",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)
}

type passInfo struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
	Processed int       `json:"processed"`
	Advanced  int       `json:"advanced"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
}

func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos := []passInfo{}

	if s.ports.History != nil {
		passes, err := s.ports.History.ListPasses(ctx, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("listing passes: %w", err)
		}
		for _, p := range passes {
			infos = append(infos, passInfo{
				ID:        p.ID,
				Mode:      string(p.Mode),
				StartedAt: p.StartedAt,
				EndedAt:   p.EndedAt,
				Processed: p.Processed,
				Advanced:  p.Advanced,
				Skipped:   p.Skipped,
				Failed:    p.Failed,
				Error:     p.Error,
			})
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling passes: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
