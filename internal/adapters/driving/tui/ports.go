// Package tui provides an interactive dashboard for watching and
// triggering sync passes.
package tui

import (
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// Ports aggregates the services the dashboard needs.
type Ports struct {
	Sync    driving.SyncOrchestrator
	History driven.HistoryStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	if p.History == nil {
		return ErrMissingHistory
	}
	return nil
}
