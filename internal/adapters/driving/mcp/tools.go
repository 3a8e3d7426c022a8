package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// RunPassInput is the input schema for the run_pass tool.
type RunPassInput struct {
	Mode string `json:"mode,omitempty" jsonschema:"pass direction: push, pull or both (default both)"`
}

// PassOutput summarises a finished pass.
type PassOutput struct {
	PassID    string   `json:"pass_id"`
	Mode      string   `json:"mode"`
	Duration  string   `json:"duration"`
	Processed int      `json:"processed"`
	Advanced  int      `json:"advanced"`
	Skipped   int      `json:"skipped"`
	Failures  []string `json:"failures,omitempty"`
}

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// StatusOutput is the output schema for the pass_status tool.
type StatusOutput struct {
	Running    bool   `json:"running"`
	PassID     string `json:"pass_id,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Processed  int    `json:"processed"`
	ErrorCount int    `json:"error_count"`
}

// ReadItemsOutput is the output schema for the read_items tool.
type ReadItemsOutput struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_pass",
		Description: "Run one sync pass between the Zotero library and the reMarkable tablet",
	}, s.handleRunPass)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retry_pending",
		Description: "Retry uploading rendered PDFs kept in the pending directory",
	}, s.handleRetryPending)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pass_status",
		Description: "Report progress of the running pass, if any",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_items",
		Description: "List PDFs of library items that have been read on the tablet",
	}, s.handleReadItems)
}

func (s *Server) handleRunPass(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunPassInput,
) (*mcp.CallToolResult, PassOutput, error) {
	mode := domain.ModeBoth
	if input.Mode != "" {
		var err error
		if mode, err = domain.ParseMode(input.Mode); err != nil {
			return nil, PassOutput{}, err
		}
	}

	report, err := s.ports.Sync.RunPass(ctx, mode)
	if err != nil {
		return nil, PassOutput{}, err
	}
	return nil, passOutput(report), nil
}

func (s *Server) handleRetryPending(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, PassOutput, error) {
	report, err := s.ports.Sync.RetryPending(ctx)
	if err != nil {
		return nil, PassOutput{}, err
	}
	return nil, passOutput(report), nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	st, err := s.ports.Sync.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Running:    st.Running,
		PassID:     st.PassID,
		Mode:       string(st.Mode),
		Processed:  st.Processed,
		ErrorCount: st.ErrorCount,
	}, nil
}

func (s *Server) handleReadItems(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, ReadItemsOutput, error) {
	files, err := s.ports.Sync.SyncStatus(ctx)
	if err != nil {
		return nil, ReadItemsOutput{}, err
	}
	if files == nil {
		files = []string{}
	}
	return nil, ReadItemsOutput{Files: files, Count: len(files)}, nil
}

func passOutput(r *domain.PassReport) PassOutput {
	processed, advanced, skipped, _ := r.Snapshot()
	out := PassOutput{
		PassID:    r.ID,
		Mode:      string(r.Mode),
		Processed: processed,
		Advanced:  advanced,
		Skipped:   skipped,
	}
	if !r.EndedAt.IsZero() {
		out.Duration = r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, f.String())
	}
	return out
}
