// Package mcp provides an MCP (Model Context Protocol) server adapter that
// lets assistants run and inspect sync passes.
package mcp

import "errors"

// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
var ErrMissingSyncOrchestrator = errors.New("mcp: sync orchestrator is required")
