package mcp

import (
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// Ports aggregates the services the MCP server exposes.
type Ports struct {
	// Sync runs and reports on passes.
	Sync driving.SyncOrchestrator

	// History is optional; without it the history resource is empty.
	History driven.HistoryStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	return nil
}
