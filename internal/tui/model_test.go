package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/render"
)

type fakeService struct {
	pending    *domain.PendingReport
	snapshot   int
	syncResult app.SyncResult
	syncErr    error
	loadErr    error
	syncCalls  []bool
	consumed   []string
}

func newPendingReport(id string) *domain.PendingReport {
	item := domain.CanonicalItem{ID: 1, Title: "Frieren", Status: domain.StatusWatching, EpisodesWatched: 4}
	report := domain.DiffReport{
		NewEntries: []domain.CanonicalItem{item},
		HasChanges: true,
	}
	report.SummaryText = render.Summary(report, render.LocaleEnglish)
	return &domain.PendingReport{
		ID:        id,
		Report:    report,
		Locale:    render.LocaleEnglish,
		CreatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeService) Pending(context.Context) (domain.PendingReport, bool, error) {
	if f.loadErr != nil {
		return domain.PendingReport{}, false, f.loadErr
	}
	if f.pending == nil {
		return domain.PendingReport{}, false, nil
	}
	return *f.pending, true, nil
}

func (f *fakeService) ListView(_ context.Context, locale string) ([]render.DisplayLine, error) {
	if f.pending == nil {
		return []render.DisplayLine{}, nil
	}
	return render.ListView(f.pending.Report, locale), nil
}

func (f *fakeService) Sync(_ context.Context, opts app.SyncOptions) (app.SyncResult, error) {
	f.syncCalls = append(f.syncCalls, opts.Force)
	if f.syncErr != nil {
		return app.SyncResult{}, f.syncErr
	}
	if f.syncResult.Pending != nil {
		f.pending = f.syncResult.Pending
	}
	return f.syncResult, nil
}

func (f *fakeService) Consume(_ context.Context, reportID string) (app.ConsumeResult, error) {
	if f.pending == nil {
		return app.ConsumeResult{}, app.ErrNoPendingReport
	}
	if reportID != f.pending.ID {
		return app.ConsumeResult{}, app.ErrReportMismatch
	}
	f.consumed = append(f.consumed, reportID)
	out := app.ConsumeResult{Report: *f.pending, Prompt: "prompt for " + reportID}
	f.pending = nil
	return out, nil
}

func (f *fakeService) Status(context.Context) (app.StatusReport, error) {
	out := app.StatusReport{SnapshotSize: f.snapshot}
	if f.pending != nil {
		out.Dirty = true
		out.PendingID = f.pending.ID
	}
	return out, nil
}

// TestModelLoadShowsPendingReport verifies load populates the list and dirty badge.
func TestModelLoadShowsPendingReport(t *testing.T) {
	svc := &fakeService{pending: newPendingReport("report-1"), snapshot: 3}
	m := loadReadyModel(t, NewModel(svc))

	if m.pending == nil || m.pending.ID != "report-1" {
		t.Fatalf("expected pending report, got %#v", m.pending)
	}
	if len(m.lines) != 1 || m.lines[0].Kind != render.KindNew {
		t.Fatalf("unexpected lines %#v", m.lines)
	}
	if !m.state.Dirty || m.state.SnapshotSize != 3 {
		t.Fatalf("unexpected status %#v", m.state)
	}
	view := plainView(m)
	if !strings.Contains(view, "pending report") || !strings.Contains(view, "Frieren") {
		t.Fatalf("expected dirty badge and title in view, got %q", view)
	}
}

// TestModelLocaleOption verifies list lines follow the configured locale.
func TestModelLocaleOption(t *testing.T) {
	svc := &fakeService{pending: newPendingReport("report-1")}
	m := loadReadyModel(t, NewModel(svc, WithLocale("tr_TR.UTF-8")))
	if m.locale != render.LocaleTurkish {
		t.Fatalf("expected turkish locale, got %q", m.locale)
	}
	if len(m.lines) != 1 || !strings.Contains(m.lines[0].Plain(), "Frieren") {
		t.Fatalf("unexpected lines %#v", m.lines)
	}
}

// TestModelConsumeCopiesPrompt verifies consume commits the report and copies its prompt.
func TestModelConsumeCopiesPrompt(t *testing.T) {
	svc := &fakeService{pending: newPendingReport("report-7")}
	var copied string
	m := loadReadyModel(t, NewModel(svc, WithClipboard(func(text string) error {
		copied = text
		return nil
	})))

	m = applyMsg(t, m, keyRune('c'))
	if len(svc.consumed) != 1 || svc.consumed[0] != "report-7" {
		t.Fatalf("expected report-7 consumed, got %#v", svc.consumed)
	}
	if copied != "prompt for report-7" || m.LastPrompt() != copied {
		t.Fatalf("unexpected copied prompt %q / %q", copied, m.LastPrompt())
	}
	if m.pending != nil || m.state.Dirty {
		t.Fatalf("expected clean state after consume, got %#v %#v", m.pending, m.state)
	}
	if !strings.Contains(m.notice, "copied") {
		t.Fatalf("unexpected notice %q", m.notice)
	}

	m = applyMsg(t, m, keyRune('c'))
	if m.notice != "nothing to consume" || len(svc.consumed) != 1 {
		t.Fatalf("expected no-op consume, got notice %q", m.notice)
	}
}

// TestModelConsumeClipboardFailure verifies a clipboard error still commits the report.
func TestModelConsumeClipboardFailure(t *testing.T) {
	svc := &fakeService{pending: newPendingReport("report-2")}
	m := loadReadyModel(t, NewModel(svc, WithClipboard(func(string) error {
		return errors.New("no display")
	})))
	m = applyMsg(t, m, keyRune('c'))
	if len(svc.consumed) != 1 {
		t.Fatalf("expected consume despite clipboard failure, got %#v", svc.consumed)
	}
	if !strings.Contains(m.notice, "clipboard unavailable") || m.LastPrompt() == "" {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

// TestModelSyncKeys verifies s and f trigger normal and forced syncs.
func TestModelSyncKeys(t *testing.T) {
	svc := &fakeService{snapshot: 2}
	svc.syncResult = app.SyncResult{
		Outcome: app.SyncChanges,
		Pending: newPendingReport("report-3"),
		Report:  newPendingReport("report-3").Report,
	}
	m := loadReadyModel(t, NewModel(svc))
	if m.pending != nil {
		t.Fatal("expected no pending report before sync")
	}

	m = applyMsg(t, m, keyRune('s'))
	if len(svc.syncCalls) != 1 || svc.syncCalls[0] {
		t.Fatalf("expected one unforced sync, got %#v", svc.syncCalls)
	}
	if m.pending == nil || m.pending.ID != "report-3" {
		t.Fatalf("expected pending report after sync, got %#v", m.pending)
	}
	if m.notice != "sync: 1 new, 0 updated" {
		t.Fatalf("unexpected notice %q", m.notice)
	}

	svc.syncResult = app.SyncResult{Outcome: app.SyncUnchanged}
	m = applyMsg(t, m, keyRune('f'))
	if len(svc.syncCalls) != 2 || !svc.syncCalls[1] {
		t.Fatalf("expected forced sync, got %#v", svc.syncCalls)
	}
	if m.busy {
		t.Fatal("expected busy flag cleared after sync")
	}
}

// TestModelSyncFailure verifies sync errors land in the status line.
func TestModelSyncFailure(t *testing.T) {
	svc := &fakeService{syncErr: domain.ErrAuth}
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('s'))
	if !strings.HasPrefix(m.notice, "sync failed") {
		t.Fatalf("unexpected notice %q", m.notice)
	}
	if m.err != nil {
		t.Fatalf("sync failure should not replace the view, got %v", m.err)
	}
}

// TestModelBusyBlocksActions verifies actions wait for the running command.
func TestModelBusyBlocksActions(t *testing.T) {
	svc := &fakeService{pending: newPendingReport("report-4")}
	m := loadReadyModel(t, NewModel(svc))
	m.busy = true
	updated, cmd := m.Update(keyRune('s'))
	if cmd != nil {
		t.Fatal("expected no command while busy")
	}
	if got := updated.(Model); got.notice != "busy, try again in a moment" {
		t.Fatalf("unexpected notice %q", got.notice)
	}
	if len(svc.syncCalls) != 0 {
		t.Fatalf("expected no sync while busy, got %#v", svc.syncCalls)
	}
}

// TestModelNavigationAndToggles verifies cursor movement and view toggles.
func TestModelNavigationAndToggles(t *testing.T) {
	pending := newPendingReport("report-5")
	pending.Report.NewEntries = append(pending.Report.NewEntries, domain.CanonicalItem{ID: 2, Title: "Mushishi", Status: domain.StatusPlanToWatch})
	pending.Report.SummaryText = render.Summary(pending.Report, render.LocaleEnglish)
	m := loadReadyModel(t, NewModel(&fakeService{pending: pending}))

	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	if m.cursor != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", m.cursor)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyUp})
	if m.cursor != 0 {
		t.Fatalf("expected cursor 0, got %d", m.cursor)
	}

	m = applyMsg(t, m, keyRune('m'))
	if !m.showMarkdown {
		t.Fatal("expected markdown view enabled")
	}
	if !strings.Contains(plainView(m), "Mushishi") {
		t.Fatal("expected markdown view to include titles")
	}
	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll {
		t.Fatal("expected full help enabled")
	}
}

// TestModelViewStates verifies loading, empty, and error views.
func TestModelViewStates(t *testing.T) {
	m := NewModel(&fakeService{})
	if got := plainView(m); got != "loading..." {
		t.Fatalf("unexpected loading view %q", got)
	}
	if !m.View().AltScreen {
		t.Fatal("expected alt screen view")
	}

	m = loadReadyModel(t, m)
	if !strings.Contains(plainView(m), "No pending changes") {
		t.Fatalf("expected empty state, got %q", plainView(m))
	}
	if !strings.Contains(plainView(m), "up to date") {
		t.Fatal("expected clean badge")
	}

	failing := &fakeService{loadErr: errors.Join(domain.ErrStorage, errors.New("locked"))}
	m = loadReadyModel(t, NewModel(failing))
	if m.err == nil || !strings.Contains(plainView(m), "storage is unavailable") {
		t.Fatalf("expected storage error view, got %q", plainView(m))
	}

	failing.loadErr = nil
	m = applyMsg(t, m, keyRune('r'))
	if m.err != nil {
		t.Fatalf("expected reload to clear error, got %v", m.err)
	}
}

// TestModelQuitKey verifies q quits.
func TestModelQuitKey(t *testing.T) {
	m := NewModel(&fakeService{})
	updated, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if updated == nil {
		t.Fatal("expected model return value")
	}
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected quit message")
	}
}

// TestSyncNotice verifies each outcome renders a status line.
func TestSyncNotice(t *testing.T) {
	cases := map[app.SyncOutcome]string{
		app.SyncInitialized: "sync: snapshot initialized",
		app.SyncUnchanged:   "sync: no changes",
	}
	for outcome, want := range cases {
		if got := syncNotice(app.SyncResult{Outcome: outcome}); got != want {
			t.Fatalf("syncNotice(%q) = %q, want %q", outcome, got, want)
		}
	}
	got := syncNotice(app.SyncResult{Outcome: app.SyncSkipped, RetryAfter: 90 * time.Second})
	if got != "sync skipped: retry in 1m30s" {
		t.Fatalf("unexpected skipped notice %q", got)
	}
}

// TestHelpers verifies layout helpers.
func TestHelpers(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("unexpected fitLines %q", got)
	}
	if got := fitLines("a", 3); got != "a\n\n" {
		t.Fatalf("unexpected padded fitLines %q", got)
	}
	if got := clamp(5, 0, -1); got != 0 {
		t.Fatalf("unexpected clamp %d", got)
	}
	if got := summaryMarkdown("one\n\ntwo"); got != "- one\n- two" {
		t.Fatalf("unexpected summary markdown %q", got)
	}
}

func plainView(m Model) string {
	return ansi.Strip(m.render())
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}
