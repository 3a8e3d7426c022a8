// Package status provides the dashboard status bar.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/tui/keymap"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/tui/styles"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// State is what the bar reports on its left side.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

// Bar displays pass progress and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	pass    driving.PassStatus
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{
		styles: s,
		keymap: km,
		state:  StateIdle,
		width:  80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateRunning:
		return b.styles.Warning.Render(fmt.Sprintf("%s pass running: %d processed, %d errors",
			b.pass.Mode, b.pass.Processed, b.pass.ErrorCount))
	case StateError:
		return b.styles.Error.Render("Error: " + b.message)
	default:
		if b.message != "" {
			return b.styles.Normal.Render(b.message)
		}
		return b.styles.Muted.Render("Idle")
	}
}

func (b *Bar) renderRight() string {
	bindings := b.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetRunning shows progress of the running pass.
func (b *Bar) SetRunning(p driving.PassStatus) {
	b.state = StateRunning
	b.pass = p
}

// SetIdle clears progress and shows message, which may be empty.
func (b *Bar) SetIdle(message string) {
	b.state = StateIdle
	b.message = message
	b.pass = driving.PassStatus{}
}

// SetError shows err.
func (b *Bar) SetError(err error) {
	b.state = StateError
	b.message = err.Error()
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}
