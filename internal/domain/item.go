package domain

import (
	"strings"
	"time"
)

// RawItem mirrors one entry of the catalog's user animelist payload.
type RawItem struct {
	Node       RawNode       `json:"node"`
	ListStatus RawListStatus `json:"list_status"`
}

// RawNode holds catalog-side anime details.
type RawNode struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Mean        float64    `json:"mean,omitempty"`
	Rank        int        `json:"rank,omitempty"`
	Genres      []NamedRef `json:"genres,omitempty"`
	Studios     []NamedRef `json:"studios,omitempty"`
	NumEpisodes int        `json:"num_episodes,omitempty"`
	MediaType   string     `json:"media_type,omitempty"`
}

// NamedRef is an id/name pair used for genres and studios.
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RawListStatus holds user-side progress for one entry.
type RawListStatus struct {
	Status             string `json:"status"`
	Score              int    `json:"score"`
	NumEpisodesWatched int    `json:"num_episodes_watched"`
	UpdatedAt          string `json:"updated_at,omitempty"`
	ListUpdatedAt      string `json:"list_updated_at,omitempty"`
}

// CanonicalItem is one user-list entry after normalization. ID is the sole
// diff key and never changes for an entry.
type CanonicalItem struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	Status             Status   `json:"status"`
	EpisodesWatched    int      `json:"episodes_watched"`
	Score              int      `json:"score"`
	UpdatedAtFormatted string   `json:"updated_at_formatted"`
	UpdatedAtRaw       string   `json:"raw_updated_at,omitempty"`
	MeanRating         float64  `json:"mean,omitempty"`
	Rank               int      `json:"rank,omitempty"`
	Genres             []string `json:"genres"`
	Studios            []string `json:"studios"`
	TotalEpisodes      int      `json:"num_episodes,omitempty"`
	MediaType          string   `json:"media_type,omitempty"`
}

// UpdatedAt parses UpdatedAtRaw. The bool is false when the value is absent or unparseable.
func (c CanonicalItem) UpdatedAt() (time.Time, bool) {
	return ParseTimestamp(c.UpdatedAtRaw)
}

// UpdatedAfter reports whether the item's raw update time is strictly after cutoff.
func (c CanonicalItem) UpdatedAfter(cutoff time.Time) bool {
	updatedAt, ok := c.UpdatedAt()
	if !ok {
		return false
	}
	return updatedAt.After(cutoff)
}

// Snapshot is the full ordered state of a user's tracked list at one point in time.
type Snapshot []CanonicalItem

// IDs returns item identifiers in snapshot order.
func (s Snapshot) IDs() []int64 {
	out := make([]int64, 0, len(s))
	for _, item := range s {
		out = append(out, item.ID)
	}
	return out
}

// timestampLayouts lists accepted ISO-8601 shapes, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses one ISO-8601 timestamp string. Zone-less values are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders ts as the ISO-8601 string stored in the state bag.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
