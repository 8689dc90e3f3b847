// Package diff compares two list snapshots and classifies what changed.
package diff

import (
	"time"

	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/render"
)

// Options configures one Compute call.
type Options struct {
	// Locale selects the summary template variant.
	Locale string
}

// Compute returns the report of additions and field updates from previous to
// current. Removed entries are not reported.
//
// With an empty previous snapshot nothing is reported unless cutoff is set, in
// which case only items updated strictly after cutoff count as new. Neither
// snapshot is modified.
func Compute(previous, current domain.Snapshot, cutoff *time.Time, opts Options) domain.DiffReport {
	report := domain.DiffReport{
		NewEntries: []domain.CanonicalItem{},
		Updates:    []domain.UpdateEntry{},
	}

	if len(previous) == 0 {
		if cutoff != nil {
			for _, item := range current {
				if item.UpdatedAfter(*cutoff) {
					report.NewEntries = append(report.NewEntries, item)
				}
			}
		}
		return finish(report, opts)
	}

	known := make(map[int64]domain.CanonicalItem, len(previous))
	for _, item := range previous {
		known[item.ID] = item
	}

	for _, item := range current {
		old, ok := known[item.ID]
		if !ok {
			report.NewEntries = append(report.NewEntries, item)
			continue
		}
		changes := fieldChanges(old, item)
		if len(changes) == 0 && cutoff != nil && item.UpdatedAfter(*cutoff) {
			changes = append(changes, domain.MetadataChange())
		}
		if len(changes) > 0 {
			report.Updates = append(report.Updates, domain.UpdateEntry{Item: item, Changes: changes})
		}
	}
	return finish(report, opts)
}

// fieldChanges compares tracked fields in fixed order.
func fieldChanges(old, cur domain.CanonicalItem) []domain.ChangeRecord {
	var changes []domain.ChangeRecord
	if cur.EpisodesWatched != old.EpisodesWatched {
		changes = append(changes, domain.ChangeRecord{
			Field:    domain.FieldEpisodesWatched,
			OldValue: domain.IntValue(old.EpisodesWatched),
			NewValue: domain.IntValue(cur.EpisodesWatched),
		})
	}
	if cur.Score != old.Score {
		changes = append(changes, domain.ChangeRecord{
			Field:    domain.FieldScore,
			OldValue: domain.IntValue(old.Score),
			NewValue: domain.IntValue(cur.Score),
		})
	}
	if cur.Status != old.Status {
		changes = append(changes, domain.ChangeRecord{
			Field:    domain.FieldStatus,
			OldValue: domain.StringValue(string(old.Status)),
			NewValue: domain.StringValue(string(cur.Status)),
		})
	}
	return changes
}

func finish(report domain.DiffReport, opts Options) domain.DiffReport {
	report.HasChanges = len(report.NewEntries) > 0 || len(report.Updates) > 0
	if report.HasChanges {
		report.SummaryText = render.Summary(report, opts.Locale)
	}
	return report
}
