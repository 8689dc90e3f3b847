package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hylla/animebridge/internal/adapters/storage/sqlite"
	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/domain"
)

// listCatalog serves a fixed history list and empty secondary lists.
type listCatalog struct {
	history []domain.RawItem
}

// FetchList returns the history list for history queries.
func (c *listCatalog) FetchList(_ context.Context, q app.ListQuery, _ string) ([]domain.RawItem, error) {
	if q.Sort == "list_updated_at" {
		return c.history, nil
	}
	return []domain.RawItem{}, nil
}

// rawEntry builds one catalog record updated at ts.
func rawEntry(id int64, title string, status domain.Status, episodes int, ts string) domain.RawItem {
	return domain.RawItem{
		Node: domain.RawNode{ID: id, Title: title},
		ListStatus: domain.RawListStatus{
			Status:             string(status),
			NumEpisodesWatched: episodes,
			UpdatedAt:          ts,
		},
	}
}

// newAdapterFixture wires an adapter over an in-memory repository.
func newAdapterFixture(t *testing.T, catalog *listCatalog) *AppServiceAdapter {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	seq := 0
	svc := app.NewService(catalog, repo, func() string {
		seq++
		return fmt.Sprintf("report-%d", seq)
	}, func() time.Time {
		now = now.Add(time.Minute)
		return now
	}, app.ServiceConfig{Username: "user", ClientID: "client", Cooldown: 0, Location: time.UTC}, nil)
	return NewAppServiceAdapter(svc)
}

// TestAppServiceAdapterLifecycle verifies sync, pending, consume, and history through the adapter.
func TestAppServiceAdapterLifecycle(t *testing.T) {
	ctx := context.Background()
	catalog := &listCatalog{history: []domain.RawItem{
		rawEntry(1, "Vinland Saga", domain.StatusWatching, 5, "2026-03-01T10:00:00+00:00"),
	}}
	adapter := newAdapterFixture(t, catalog)

	first, err := adapter.Sync(ctx, SyncRequest{Force: true})
	if err != nil {
		t.Fatalf("Sync(first) error = %v", err)
	}
	if first.Outcome != string(app.SyncInitialized) {
		t.Fatalf("first outcome = %q, want %q", first.Outcome, app.SyncInitialized)
	}
	if _, err := adapter.PendingReport(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PendingReport() error = %v, want ErrNotFound", err)
	}

	catalog.history = []domain.RawItem{
		rawEntry(1, "Vinland Saga", domain.StatusWatching, 6, "2026-03-02T13:30:00+00:00"),
	}
	second, err := adapter.Sync(ctx, SyncRequest{Force: true})
	if err != nil {
		t.Fatalf("Sync(second) error = %v", err)
	}
	if second.Outcome != string(app.SyncChanges) || second.PendingID == "" || second.Updates != 1 {
		t.Fatalf("unexpected second sync %#v", second)
	}

	pending, err := adapter.PendingReport(ctx, "tr")
	if err != nil {
		t.Fatalf("PendingReport() error = %v", err)
	}
	if pending.ID != second.PendingID || pending.Locale != "tr" || len(pending.Lines) != 1 {
		t.Fatalf("unexpected pending %#v", pending)
	}
	if !strings.Contains(pending.Lines[0].Plain(), "Bölüm: 5 -> 6") {
		t.Fatalf("expected turkish line, got %q", pending.Lines[0].Plain())
	}
	fallback, err := adapter.PendingReport(ctx, "fr")
	if err != nil {
		t.Fatalf("PendingReport(fr) error = %v", err)
	}
	if fallback.Locale != "en" || !strings.Contains(fallback.Lines[0].Plain(), "Ep: 5 -> 6") {
		t.Fatalf("expected english fallback, got %q / %#v", fallback.Locale, fallback.Lines)
	}

	if _, err := adapter.ConsumeReport(ctx, ConsumeRequest{ReportID: "stale"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("ConsumeReport(stale) error = %v, want ErrConflict", err)
	}
	consumed, err := adapter.ConsumeReport(ctx, ConsumeRequest{ReportID: pending.ID})
	if err != nil {
		t.Fatalf("ConsumeReport() error = %v", err)
	}
	if !strings.Contains(consumed.Prompt, "Vinland Saga") {
		t.Fatalf("prompt missing entry: %q", consumed.Prompt)
	}

	history, err := adapter.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].ID != pending.ID || history[0].Updates != 1 {
		t.Fatalf("unexpected history %#v", history)
	}
	st, err := adapter.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Dirty || st.SnapshotSize != 1 {
		t.Fatalf("unexpected status %#v", st)
	}
}

// TestAppServiceAdapterInputValidation verifies transport-level argument checks.
func TestAppServiceAdapterInputValidation(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapterFixture(t, &listCatalog{})

	if _, err := adapter.ConsumeReport(ctx, ConsumeRequest{ReportID: "  "}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("ConsumeReport(blank) error = %v, want ErrInvalidRequest", err)
	}
	if _, err := adapter.PlanToWatchPrompt(ctx, -1); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("PlanToWatchPrompt(-1) error = %v, want ErrInvalidRequest", err)
	}
	if _, err := adapter.Respond(ctx, " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Respond(blank) error = %v, want ErrInvalidRequest", err)
	}
	if _, err := adapter.Respond(ctx, strings.Repeat("a", maxMessageBytes+1)); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Respond(oversized) error = %v, want ErrInvalidRequest", err)
	}
	if _, err := adapter.ConsumeReport(ctx, ConsumeRequest{ReportID: "r"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ConsumeReport(no pending) error = %v, want ErrNotFound", err)
	}
}

// TestAppServiceAdapterNotConfigured verifies nil adapters fail closed.
func TestAppServiceAdapterNotConfigured(t *testing.T) {
	var adapter *AppServiceAdapter
	if _, err := adapter.Status(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Status() error = %v, want ErrNotConfigured", err)
	}
}

// TestMapAppError verifies app and domain errors map onto transport sentinels.
func TestMapAppError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{name: "no pending", in: app.ErrNoPendingReport, want: ErrNotFound},
		{name: "mismatch", in: fmt.Errorf("%w: x", app.ErrReportMismatch), want: ErrConflict},
		{name: "credentials", in: app.ErrCredentialsMissing, want: ErrNotConfigured},
		{name: "validation", in: domain.ErrValidation, want: ErrInvalidRequest},
		{name: "auth", in: domain.ErrAuth, want: ErrUpstreamAuth},
		{name: "catalog not found", in: domain.ErrNotFound, want: ErrNotFound},
		{name: "transport", in: &domain.TransportError{StatusCode: 502, Status: "502 Bad Gateway"}, want: ErrUpstream},
		{name: "storage", in: errors.Join(domain.ErrStorage, errors.New("locked")), want: ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapAppError("op", tc.in)
			if !errors.Is(got, tc.want) {
				t.Fatalf("mapAppError() = %v, want %v", got, tc.want)
			}
			if !errors.Is(got, tc.in) {
				t.Fatalf("mapAppError() dropped cause %v", tc.in)
			}
		})
	}
	if err := mapAppError("op", nil); err != nil {
		t.Fatalf("mapAppError(nil) = %v, want nil", err)
	}
}
