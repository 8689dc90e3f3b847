package domain

import "time"

// ConsumedReport represents one committed pending report in the local activity log.
type ConsumedReport struct {
	ID          string     `json:"id"`
	ConsumedAt  time.Time  `json:"consumed_at"`
	NewEntries  int        `json:"new_entries"`
	Updates     int        `json:"updates"`
	SummaryText string     `json:"summary_text"`
	Report      DiffReport `json:"report"`
}

// NewConsumedReport builds the activity-log entry for a pending report committed at now.
func NewConsumedReport(pending PendingReport, now time.Time) ConsumedReport {
	return ConsumedReport{
		ID:          pending.ID,
		ConsumedAt:  now.UTC(),
		NewEntries:  len(pending.Report.NewEntries),
		Updates:     len(pending.Report.Updates),
		SummaryText: pending.Report.SummaryText,
		Report:      pending.Report,
	}
}
