package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/tui/components/status"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/tui/keymap"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/tui/messages"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/tui/styles"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// historyRows is how many recent passes the dashboard lists.
const historyRows = 15

// pollInterval is how often the running pass is polled for progress.
var pollInterval = time.Second

// App is the dashboard following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	bar    *status.Bar

	passes []domain.PassRecord

	// last is the most recent pass started from the dashboard.
	last    *domain.PassReport
	lastErr error
	running bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a dashboard over ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:  ports,
		ctx:    context.Background(),
		styles: s,
		keymap: km,
		bar:    status.NewBar(s, km),
	}, nil
}

// WithContext sets the context passes run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("zrbridge"),
		a.loadHistory(),
		a.pollStatus(),
		tick(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.bar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg.String())

	case messages.Tick:
		return a, tea.Batch(a.pollStatus(), tick())

	case messages.StatusPolled:
		switch {
		case msg.Err != nil:
			a.bar.SetError(msg.Err)
		case msg.Status != nil && msg.Status.Running:
			a.bar.SetRunning(*msg.Status)
		case !a.running && a.bar.State() == status.StateRunning:
			// A pass started elsewhere has finished.
			a.bar.SetIdle("")
			return a, a.loadHistory()
		}
		return a, nil

	case messages.PassFinished:
		a.running = false
		a.last = msg.Report
		a.lastErr = msg.Err
		if msg.Err != nil {
			a.bar.SetError(msg.Err)
		} else {
			a.bar.SetIdle(summary(msg.Report))
		}
		return a, a.loadHistory()

	case messages.HistoryLoaded:
		if msg.Err != nil {
			a.bar.SetError(msg.Err)
			return a, nil
		}
		a.passes = msg.Passes
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(k string) tea.Cmd {
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return tea.Quit
	case keymap.Matches(k, a.keymap.Sync):
		return a.startPass(domain.ModeBoth)
	case keymap.Matches(k, a.keymap.Push):
		return a.startPass(domain.ModePush)
	case keymap.Matches(k, a.keymap.Pull):
		return a.startPass(domain.ModePull)
	case keymap.Matches(k, a.keymap.Retry):
		return a.startRetry()
	case keymap.Matches(k, a.keymap.Refresh):
		return a.loadHistory()
	}
	return nil
}

// startPass runs a pass in the background. Only one pass started here
// runs at a time; the orchestrator rejects overlap with other callers.
func (a *App) startPass(mode domain.Mode) tea.Cmd {
	return a.start(mode, func(ctx context.Context) (*domain.PassReport, error) {
		return a.ports.Sync.RunPass(ctx, mode)
	})
}

func (a *App) startRetry() tea.Cmd {
	return a.start(domain.ModePull, a.ports.Sync.RetryPending)
}

func (a *App) start(mode domain.Mode, run func(context.Context) (*domain.PassReport, error)) tea.Cmd {
	if a.running {
		return nil
	}
	a.running = true
	a.bar.SetRunning(driving.PassStatus{Mode: mode, Running: true})

	ctx := a.ctx
	return func() tea.Msg {
		report, err := run(ctx)
		return messages.PassFinished{Report: report, Err: err}
	}
}

func (a *App) loadHistory() tea.Cmd {
	ctx, history := a.ctx, a.ports.History
	return func() tea.Msg {
		passes, err := history.ListPasses(ctx, historyRows)
		return messages.HistoryLoaded{Passes: passes, Err: err}
	}
}

func (a *App) pollStatus() tea.Cmd {
	ctx, orch := a.ctx, a.ports.Sync
	return func() tea.Msg {
		st, err := orch.Status(ctx)
		return messages.StatusPolled{Status: st, Err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return messages.Tick{}
	})
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("zrbridge"))
	b.WriteString(a.styles.Muted.Render("  Zotero <-> reMarkable"))
	b.WriteString("\n\n")

	b.WriteString(a.styles.Panel.Render(a.renderHistory()))
	b.WriteString("\n")

	if last := a.renderLast(); last != "" {
		b.WriteString(a.styles.Panel.Render(last))
		b.WriteString("\n")
	}

	b.WriteString(a.bar.View())
	return b.String()
}

func (a *App) renderHistory() string {
	var b strings.Builder
	b.WriteString(a.styles.Header.Render("Recent passes"))
	b.WriteString("\n")
	if len(a.passes) == 0 {
		b.WriteString(a.styles.Muted.Render("No passes recorded yet."))
		return b.String()
	}

	b.WriteString(a.styles.Muted.Render(fmt.Sprintf("%-19s  %-4s  %8s  %5s  %5s  %5s  %5s",
		"STARTED", "MODE", "DURATION", "PROC", "ADV", "SKIP", "FAIL")))
	for _, p := range a.passes {
		duration := "-"
		if !p.EndedAt.IsZero() {
			duration = p.EndedAt.Sub(p.StartedAt).Round(time.Second).String()
		}
		line := fmt.Sprintf("%-19s  %-4s  %8s  %5d  %5d  %5d  %5d",
			p.StartedAt.Local().Format(time.DateTime), p.Mode, duration,
			p.Processed, p.Advanced, p.Skipped, p.Failed)
		if p.Error != "" {
			line += "  " + p.Error
		}
		b.WriteString("\n")
		b.WriteString(a.styles.Outcome(p.Failed, p.Error).Render(line))
	}
	return b.String()
}

func (a *App) renderLast() string {
	if a.last == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(a.styles.Header.Render("Last pass"))
	b.WriteString("\n")
	b.WriteString(summary(a.last))
	for _, f := range a.last.Failures {
		b.WriteString("\n")
		b.WriteString(a.styles.Error.Render("  - " + f.String()))
	}
	return b.String()
}

func summary(r *domain.PassReport) string {
	if r == nil {
		return ""
	}
	processed, advanced, skipped, failed := r.Snapshot()
	return fmt.Sprintf("%s pass: %d processed, %d advanced, %d skipped, %d failed",
		r.Mode, processed, advanced, skipped, failed)
}

// Passes returns the history rows on display.
func (a *App) Passes() []domain.PassRecord {
	return a.passes
}

// Running reports whether a pass started here is in flight.
func (a *App) Running() bool {
	return a.running
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}
