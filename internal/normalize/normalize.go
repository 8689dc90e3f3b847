// Package normalize converts raw catalog records into canonical list items.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/animebridge/internal/domain"
)

// UnknownDate is the formatted value used when no usable timestamp exists.
const UnknownDate = "??.??.????"

// Item maps one raw record to its canonical shape. It never fails: a malformed
// timestamp keeps its raw value and formats as UnknownDate. A nil loc means time.Local.
func Item(raw domain.RawItem, loc *time.Location) domain.CanonicalItem {
	rawDate := raw.ListStatus.UpdatedAt
	if strings.TrimSpace(rawDate) == "" {
		rawDate = raw.ListStatus.ListUpdatedAt
	}
	return domain.CanonicalItem{
		ID:                 raw.Node.ID,
		Title:              raw.Node.Title,
		Status:             domain.Status(raw.ListStatus.Status),
		EpisodesWatched:    max(0, raw.ListStatus.NumEpisodesWatched),
		Score:              clampScore(raw.ListStatus.Score),
		UpdatedAtFormatted: FormatDate(rawDate, loc),
		UpdatedAtRaw:       rawDate,
		MeanRating:         raw.Node.Mean,
		Rank:               raw.Node.Rank,
		Genres:             names(raw.Node.Genres),
		Studios:            names(raw.Node.Studios),
		TotalEpisodes:      raw.Node.NumEpisodes,
		MediaType:          raw.Node.MediaType,
	}
}

// Items maps raw records 1:1, preserving order.
func Items(raw []domain.RawItem, loc *time.Location) domain.Snapshot {
	out := make(domain.Snapshot, 0, len(raw))
	for _, item := range raw {
		out = append(out, Item(item, loc))
	}
	return out
}

// FormatDate renders raw as DD.MM.YYYY using the calendar date in loc.
func FormatDate(raw string, loc *time.Location) string {
	ts, ok := domain.ParseTimestamp(raw)
	if !ok {
		return UnknownDate
	}
	if loc == nil {
		loc = time.Local
	}
	ts = ts.In(loc)
	return fmt.Sprintf("%02d.%02d.%04d", ts.Day(), int(ts.Month()), ts.Year())
}

// Validate checks the fields a caller needs when it skips normalization.
func Validate(raw domain.RawItem) error {
	if raw.Node.ID == 0 {
		return fmt.Errorf("%w: missing id", domain.ErrValidation)
	}
	if strings.TrimSpace(raw.ListStatus.Status) == "" {
		return fmt.Errorf("%w: missing status for id %d", domain.ErrValidation, raw.Node.ID)
	}
	return nil
}

// ValidateUnique reports the first identifier that occurs more than once.
func ValidateUnique(snapshot domain.Snapshot) error {
	seen := make(map[int64]struct{}, len(snapshot))
	for _, item := range snapshot {
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: duplicate id %d in snapshot", domain.ErrValidation, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// names flattens named references, never returning nil.
func names(refs []domain.NamedRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Name)
	}
	return out
}

func clampScore(score int) int {
	return min(max(score, 0), 10)
}
