package tui

import "errors"

// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
var ErrMissingSyncOrchestrator = errors.New("tui: sync orchestrator is required")

// ErrMissingHistory is returned when the history store is not provided.
var ErrMissingHistory = errors.New("tui: history store is required")
