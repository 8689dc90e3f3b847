package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/render"
)

// Prompt kinds reported in PromptResult.
const (
	PromptKindContext = "context"
	PromptKindPlan    = "plan_to_watch"
	PromptKindMessage = "message"
)

// maxMessageBytes bounds Respond input.
const maxMessageBytes = 16 << 10

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

var _ BridgeService = (*AppServiceAdapter)(nil)

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrNotConfigured)
	}
	return nil
}

// PendingReport returns the pending report rendered in locale, or the
// report's own locale when locale is empty.
func (a *AppServiceAdapter) PendingReport(ctx context.Context, locale string) (PendingReport, error) {
	if err := a.ready(); err != nil {
		return PendingReport{}, err
	}
	pending, ok, err := a.service.Pending(ctx)
	if err != nil {
		return PendingReport{}, mapAppError("pending report", err)
	}
	if !ok {
		return PendingReport{}, fmt.Errorf("pending report: %w", ErrNotFound)
	}
	locale = render.ResolveLocale(locale, pending.Locale)
	return PendingReport{
		ID:          pending.ID,
		CreatedAt:   pending.CreatedAt,
		Locale:      locale,
		SummaryText: pending.Report.SummaryText,
		NewEntries:  len(pending.Report.NewEntries),
		Updates:     len(pending.Report.Updates),
		Lines:       render.ListView(pending.Report, locale),
		Report:      pending.Report,
	}, nil
}

// Sync runs one sync cycle.
func (a *AppServiceAdapter) Sync(ctx context.Context, in SyncRequest) (SyncResult, error) {
	if err := a.ready(); err != nil {
		return SyncResult{}, err
	}
	res, err := a.service.Sync(ctx, app.SyncOptions{Force: in.Force})
	if err != nil {
		return SyncResult{}, mapAppError("sync", err)
	}
	out := SyncResult{
		Outcome:           string(res.Outcome),
		NewEntries:        len(res.Report.NewEntries),
		Updates:           len(res.Report.Updates),
		SummaryText:       res.Report.SummaryText,
		SyncedAt:          res.SyncedAt,
		RetryAfterSeconds: int(res.RetryAfter.Seconds()),
		Shared:            res.Shared,
	}
	if res.Pending != nil {
		out.PendingID = res.Pending.ID
	}
	return out, nil
}

// ConsumeReport commits the pending report named by in.ReportID.
func (a *AppServiceAdapter) ConsumeReport(ctx context.Context, in ConsumeRequest) (ConsumeResult, error) {
	if err := a.ready(); err != nil {
		return ConsumeResult{}, err
	}
	reportID := strings.TrimSpace(in.ReportID)
	if reportID == "" {
		return ConsumeResult{}, fmt.Errorf("report_id is required: %w", ErrInvalidRequest)
	}
	res, err := a.service.Consume(ctx, reportID)
	if err != nil {
		return ConsumeResult{}, mapAppError("consume report", err)
	}
	return ConsumeResult{
		ReportID:    res.Report.ID,
		Prompt:      res.Prompt,
		SummaryText: res.Report.Report.SummaryText,
		ConsumedAt:  res.ConsumedAt,
	}, nil
}

// ContextPrompt renders the full profile prompt.
func (a *AppServiceAdapter) ContextPrompt(ctx context.Context) (PromptResult, error) {
	if err := a.ready(); err != nil {
		return PromptResult{}, err
	}
	text, err := a.service.ContextPrompt(ctx)
	if err != nil {
		return PromptResult{}, mapAppError("context prompt", err)
	}
	return PromptResult{Kind: PromptKindContext, Prompt: text}, nil
}

// PlanToWatchPrompt renders the plan-to-watch prompt.
func (a *AppServiceAdapter) PlanToWatchPrompt(ctx context.Context, limit int) (PromptResult, error) {
	if err := a.ready(); err != nil {
		return PromptResult{}, err
	}
	if limit < 0 {
		return PromptResult{}, fmt.Errorf("limit must be >= 0: %w", ErrInvalidRequest)
	}
	text, err := a.service.PlanToWatchPrompt(ctx, limit)
	if err != nil {
		return PromptResult{}, mapAppError("plan to watch prompt", err)
	}
	return PromptResult{Kind: PromptKindPlan, Prompt: text}, nil
}

// Respond resolves a chat message, consuming the pending report when present.
func (a *AppServiceAdapter) Respond(ctx context.Context, message string) (PromptResult, error) {
	if err := a.ready(); err != nil {
		return PromptResult{}, err
	}
	if strings.TrimSpace(message) == "" {
		return PromptResult{}, fmt.Errorf("message is required: %w", ErrInvalidRequest)
	}
	if len(message) > maxMessageBytes {
		return PromptResult{}, fmt.Errorf("message exceeds %d bytes: %w", maxMessageBytes, ErrInvalidRequest)
	}
	text, err := a.service.Respond(ctx, message)
	if err != nil {
		return PromptResult{}, mapAppError("respond", err)
	}
	return PromptResult{Kind: PromptKindMessage, Prompt: text}, nil
}

// History lists consumed reports.
func (a *AppServiceAdapter) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	rows, err := a.service.History(ctx, limit)
	if err != nil {
		return nil, mapAppError("history", err)
	}
	out := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryEntry{
			ID:          row.ID,
			ConsumedAt:  row.ConsumedAt,
			NewEntries:  row.NewEntries,
			Updates:     row.Updates,
			SummaryText: row.SummaryText,
		})
	}
	return out, nil
}

// Status reports the dirty badge and sync bookkeeping.
func (a *AppServiceAdapter) Status(ctx context.Context) (Status, error) {
	if err := a.ready(); err != nil {
		return Status{}, err
	}
	st, err := a.service.Status(ctx)
	if err != nil {
		return Status{}, mapAppError("status", err)
	}
	return Status{
		Dirty:            st.Dirty,
		PendingID:        st.PendingID,
		SnapshotSize:     st.SnapshotSize,
		LastSnapshotDate: st.LastSnapshotDate,
		LastSynced:       st.LastSynced,
	}, nil
}

// mapAppError translates app and domain errors into transport sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var mapped error
	switch {
	case errors.Is(err, app.ErrNoPendingReport):
		mapped = ErrNotFound
	case errors.Is(err, app.ErrReportMismatch):
		mapped = ErrConflict
	case errors.Is(err, app.ErrCredentialsMissing):
		mapped = ErrNotConfigured
	case errors.Is(err, domain.ErrValidation):
		mapped = ErrInvalidRequest
	case errors.Is(err, domain.ErrAuth):
		mapped = ErrUpstreamAuth
	case errors.Is(err, domain.ErrNotFound):
		mapped = ErrNotFound
	case errors.Is(err, domain.ErrTransport):
		mapped = ErrUpstream
	case errors.Is(err, domain.ErrStorage):
		mapped = ErrUnavailable
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
	return fmt.Errorf("%s: %w", operation, errors.Join(mapped, err))
}
