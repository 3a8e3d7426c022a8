package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

func TestNewBar_Defaults(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Equal(t, StateIdle, bar.State())
	assert.Contains(t, bar.View(), "Idle")
	assert.Contains(t, bar.View(), "q: quit")
}

func TestBar_Transitions(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	bar.SetRunning(driving.PassStatus{Mode: domain.ModePush, Running: true, Processed: 3, ErrorCount: 1})
	assert.Equal(t, StateRunning, bar.State())
	assert.Contains(t, bar.View(), "push pass running: 3 processed, 1 errors")

	bar.SetError(errors.New("boom"))
	assert.Equal(t, StateError, bar.State())
	assert.Contains(t, bar.View(), "Error: boom")

	bar.SetIdle("done")
	assert.Equal(t, StateIdle, bar.State())
	assert.Contains(t, bar.View(), "done")
}
