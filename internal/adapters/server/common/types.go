// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/render"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrConflict reports a request that does not match current state.
var ErrConflict = errors.New("conflict")

// ErrNotConfigured reports missing catalog credentials.
var ErrNotConfigured = errors.New("not configured")

// ErrUpstreamAuth reports a rejected catalog credential.
var ErrUpstreamAuth = errors.New("upstream rejected credentials")

// ErrUpstream reports catalog transport failures.
var ErrUpstream = errors.New("upstream failure")

// ErrUnavailable reports local storage failures.
var ErrUnavailable = errors.New("storage unavailable")

// PendingReport is the transport view of the pending report.
type PendingReport struct {
	ID          string               `json:"id"`
	CreatedAt   time.Time            `json:"created_at"`
	Locale      string               `json:"locale"`
	SummaryText string               `json:"summary_text"`
	NewEntries  int                  `json:"new_entries"`
	Updates     int                  `json:"updates"`
	Lines       []render.DisplayLine `json:"lines"`
	Report      domain.DiffReport    `json:"report"`
}

// SyncRequest holds sync trigger options.
type SyncRequest struct {
	Force bool `json:"force,omitempty"`
}

// SyncResult summarizes one sync cycle.
type SyncResult struct {
	Outcome           string    `json:"outcome"`
	PendingID         string    `json:"pending_id,omitempty"`
	NewEntries        int       `json:"new_entries"`
	Updates           int       `json:"updates"`
	SummaryText       string    `json:"summary_text,omitempty"`
	SyncedAt          time.Time `json:"synced_at"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
	Shared            bool      `json:"shared,omitempty"`
}

// ConsumeRequest identifies the pending report to commit.
type ConsumeRequest struct {
	ReportID string `json:"report_id"`
}

// ConsumeResult carries the rendered prompt of a committed report.
type ConsumeResult struct {
	ReportID    string    `json:"report_id"`
	Prompt      string    `json:"prompt"`
	SummaryText string    `json:"summary_text"`
	ConsumedAt  time.Time `json:"consumed_at"`
}

// PromptResult carries one rendered prompt block.
type PromptResult struct {
	Kind   string `json:"kind"`
	Prompt string `json:"prompt"`
}

// HistoryEntry is one consumed-report row.
type HistoryEntry struct {
	ID          string    `json:"id"`
	ConsumedAt  time.Time `json:"consumed_at"`
	NewEntries  int       `json:"new_entries"`
	Updates     int       `json:"updates"`
	SummaryText string    `json:"summary_text"`
}

// Status summarizes stored state for badges and health views.
type Status struct {
	Dirty            bool       `json:"dirty"`
	PendingID        string     `json:"pending_id,omitempty"`
	SnapshotSize     int        `json:"snapshot_size"`
	LastSnapshotDate *time.Time `json:"last_snapshot_date,omitempty"`
	LastSynced       *time.Time `json:"last_synced,omitempty"`
}

// BridgeService is the surface shared by HTTP and MCP transports.
type BridgeService interface {
	PendingReport(context.Context, string) (PendingReport, error)
	Sync(context.Context, SyncRequest) (SyncResult, error)
	ConsumeReport(context.Context, ConsumeRequest) (ConsumeResult, error)
	ContextPrompt(context.Context) (PromptResult, error)
	PlanToWatchPrompt(context.Context, int) (PromptResult, error)
	Respond(context.Context, string) (PromptResult, error)
	History(context.Context, int) ([]HistoryEntry, error)
	Status(context.Context) (Status, error)
}
