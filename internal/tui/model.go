// Package tui renders the pending report as an interactive terminal view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/render"
)

// Service represents service data used by this package.
type Service interface {
	Pending(context.Context) (domain.PendingReport, bool, error)
	ListView(context.Context, string) ([]render.DisplayLine, error)
	Sync(context.Context, app.SyncOptions) (app.SyncResult, error)
	Consume(context.Context, string) (app.ConsumeResult, error)
	Status(context.Context) (app.StatusReport, error)
}

var (
	colorAccent = lipgloss.Color("62")
	colorMuted  = lipgloss.Color("241")
	colorDim    = lipgloss.Color("239")
	colorTitle  = lipgloss.Color("252")
	colorClean  = lipgloss.Color("42")
	colorDirty  = lipgloss.Color("214")
)

// loadedMsg carries one refreshed view of stored state.
type loadedMsg struct {
	pending *domain.PendingReport
	lines   []render.DisplayLine
	status  app.StatusReport
	err     error
}

// syncedMsg carries the outcome of one sync cycle.
type syncedMsg struct {
	result app.SyncResult
	err    error
}

// consumedMsg carries a committed report and the clipboard outcome.
type consumedMsg struct {
	result  app.ConsumeResult
	err     error
	copyErr error
}

// pollMsg fires when the background sync interval elapses.
type pollMsg struct{}

// Model represents model data used by this package.
type Model struct {
	svc      Service
	keys     keyMap
	help     help.Model
	markdown markdownRenderer

	locale       string
	copyText     ClipboardWriter
	pollInterval time.Duration

	width  int
	height int
	ready  bool

	busy         bool
	showMarkdown bool
	cursor       int

	pending *domain.PendingReport
	lines   []render.DisplayLine
	state   app.StatusReport

	notice     string
	lastPrompt string
	err        error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:      svc,
		keys:     newKeyMap(),
		help:     h,
		locale:   render.LocaleEnglish,
		copyText: clipboard.WriteAll,
		notice:   "loading...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	if m.pollInterval > 0 {
		return tea.Batch(m.loadData, m.schedulePoll())
	}
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.pending = msg.pending
		m.lines = msg.lines
		m.state = msg.status
		m.cursor = clamp(m.cursor, 0, len(m.lines)-1)
		if m.notice == "loading..." {
			m.notice = "ready"
		}
		return m, nil

	case syncedMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = "sync failed: " + msg.err.Error()
			return m, nil
		}
		m.notice = syncNotice(msg.result)
		return m, m.loadData

	case consumedMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = "consume failed: " + msg.err.Error()
			return m, m.loadData
		}
		m.lastPrompt = msg.result.Prompt
		if msg.copyErr != nil {
			m.notice = "report consumed; clipboard unavailable: " + msg.copyErr.Error()
		} else {
			m.notice = "report consumed; prompt copied to clipboard"
		}
		m.cursor = 0
		return m, m.loadData

	case pollMsg:
		if m.busy {
			return m, m.schedulePoll()
		}
		m.busy = true
		return m, tea.Batch(m.syncCmd(false), m.schedulePoll())

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	default:
		return m, nil
	}
}

// handleKey routes one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.cursor = clamp(m.cursor+1, 0, len(m.lines)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.cursor = clamp(m.cursor-1, 0, len(m.lines)-1)
		return m, nil
	case key.Matches(msg, m.keys.toggleMarkdown):
		m.showMarkdown = !m.showMarkdown
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.notice = "reloading..."
		return m, m.loadData
	}

	if m.busy {
		m.notice = "busy, try again in a moment"
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.sync):
		m.busy = true
		m.notice = "syncing..."
		return m, m.syncCmd(false)
	case key.Matches(msg, m.keys.forceSync):
		m.busy = true
		m.notice = "syncing (forced)..."
		return m, m.syncCmd(true)
	case key.Matches(msg, m.keys.consume):
		if m.pending == nil {
			m.notice = "nothing to consume"
			return m, nil
		}
		m.busy = true
		m.notice = "consuming..."
		return m, m.consumeCmd(m.pending.ID)
	}
	return m, nil
}

// loadData reads the pending report, its list view, and the status badge.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	pending, ok, err := m.svc.Pending(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	out := loadedMsg{lines: []render.DisplayLine{}}
	if ok {
		out.pending = &pending
		out.lines, err = m.svc.ListView(ctx, m.locale)
		if err != nil {
			return loadedMsg{err: err}
		}
	}
	out.status, err = m.svc.Status(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return out
}

// syncCmd runs one sync cycle.
func (m Model) syncCmd(force bool) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		res, err := svc.Sync(context.Background(), app.SyncOptions{Force: force})
		return syncedMsg{result: res, err: err}
	}
}

// consumeCmd commits reportID and copies the resulting prompt.
func (m Model) consumeCmd(reportID string) tea.Cmd {
	svc := m.svc
	write := m.copyText
	return func() tea.Msg {
		res, err := svc.Consume(context.Background(), reportID)
		if err != nil {
			return consumedMsg{err: err}
		}
		return consumedMsg{result: res, copyErr: write(res.Prompt)}
	}
}

// schedulePoll waits one poll interval.
func (m Model) schedulePoll() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// syncNotice describes one sync outcome for the status line.
func syncNotice(res app.SyncResult) string {
	switch res.Outcome {
	case app.SyncChanges:
		return fmt.Sprintf("sync: %d new, %d updated", len(res.Report.NewEntries), len(res.Report.Updates))
	case app.SyncInitialized:
		return "sync: snapshot initialized"
	case app.SyncSkipped:
		return fmt.Sprintf("sync skipped: retry in %s", res.RetryAfter.Round(time.Second))
	default:
		return "sync: no changes"
	}
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the full screen as text.
func (m Model) render() string {
	if m.err != nil {
		msg := "error: " + m.err.Error()
		if errors.Is(m.err, domain.ErrStorage) {
			msg += "\n\nstorage is unavailable"
		}
		return msg + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	statusStyle := lipgloss.NewStyle().Foreground(colorDim)

	header := titleStyle.Render("animebridge") + "  " + m.renderBadge()
	body := m.renderBody()

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(colorMuted).
		BorderTop(true).
		BorderForeground(colorDim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	sections := []string{header, "", body}
	if strings.TrimSpace(m.notice) != "" {
		sections = append(sections, "", statusStyle.Render(m.notice))
	}
	content := strings.Join(sections, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

// renderBadge renders the dirty indicator and sync bookkeeping.
func (m Model) renderBadge() string {
	badge := lipgloss.NewStyle().Foreground(colorClean).Render("✓ up to date")
	if m.state.Dirty {
		badge = lipgloss.NewStyle().Bold(true).Foreground(colorDirty).Render("● pending report")
	}
	meta := []string{fmt.Sprintf("snapshot: %d", m.state.SnapshotSize)}
	if m.state.LastSynced != nil {
		meta = append(meta, "synced "+m.state.LastSynced.Local().Format("2006-01-02 15:04"))
	}
	if m.busy {
		meta = append(meta, "working...")
	}
	return badge + "  " + lipgloss.NewStyle().Foreground(colorMuted).Render(strings.Join(meta, " · "))
}

// renderBody renders the list view or the markdown summary.
func (m Model) renderBody() string {
	if m.pending == nil || len(m.lines) == 0 {
		return lipgloss.NewStyle().Foreground(colorMuted).Render("No pending changes. Press s to sync.")
	}
	if m.showMarkdown {
		return m.markdown.render(summaryMarkdown(m.pending.Report.SummaryText), m.width-4)
	}

	selected := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	width := max(20, m.width-4)
	rows := make([]string, 0, len(m.lines)+1)
	rows = append(rows, lipgloss.NewStyle().Foreground(colorMuted).Render(
		fmt.Sprintf("report %s · %s", m.pending.ID, m.pending.CreatedAt.Local().Format("2006-01-02 15:04")),
	))
	for i, line := range m.lines {
		text := truncate(line.Plain(), width)
		if i == m.cursor {
			rows = append(rows, selected.Render("› "+text))
			continue
		}
		rows = append(rows, "  "+text)
	}
	return strings.Join(rows, "\n")
}

// LastPrompt returns the most recently consumed prompt.
func (m Model) LastPrompt() string {
	return m.lastPrompt
}

// clamp bounds v to [lo, hi]; an empty range yields lo.
func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

// fitLines truncates or pads content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to limit runes with an ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit <= 1 {
		return string(rs[:limit])
	}
	return string(rs[:limit-1]) + "…"
}
