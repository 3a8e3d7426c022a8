// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// HistoryLoaded carries recent pass records.
type HistoryLoaded struct {
	Passes []domain.PassRecord
	Err    error
}

// StatusPolled carries the progress of the running pass, if any.
type StatusPolled struct {
	Status *driving.PassStatus
	Err    error
}

// PassStarted is sent when the user triggers a pass.
type PassStarted struct {
	Mode domain.Mode
}

// PassFinished carries the outcome of a pass started from the TUI.
type PassFinished struct {
	Report *domain.PassReport
	Err    error
}

// Tick drives periodic status polling.
type Tick struct{}
