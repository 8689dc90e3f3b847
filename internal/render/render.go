// Package render projects diff reports into localized summaries and list views.
package render

import (
	"strings"

	"github.com/hylla/animebridge/internal/domain"
)

// Icons prefixed to display lines.
const (
	IconCompleted   = "🎉"
	IconWatching    = "▶️"
	IconPlanToWatch = "📑"
	IconAdded       = "🆕"
	IconUpdated     = "📝"
)

// LineKind classifies one display line.
type LineKind string

// LineKind values.
const (
	KindNew       LineKind = "new"
	KindUpdate    LineKind = "update"
	KindCompleted LineKind = "completed"
)

// Detail is one rendered field change. A Detail with empty Old and New is a
// bare label, used for metadata touches.
type Detail struct {
	Label string `json:"label"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new,omitempty"`
}

// Plain renders the detail without markup.
func (d Detail) Plain() string {
	if d.Old == "" && d.New == "" {
		return d.Label
	}
	return d.Label + ": " + d.Old + " -> " + d.New
}

// Markdown renders the detail with the new value emphasized.
func (d Detail) Markdown() string {
	if d.Old == "" && d.New == "" {
		return d.Label
	}
	return d.Label + ": " + d.Old + " -> **" + d.New + "**"
}

// DisplayLine is one iteration-friendly entry of the list view.
type DisplayLine struct {
	Kind    LineKind `json:"kind"`
	ItemID  int64    `json:"item_id"`
	Title   string   `json:"title"`
	Icon    string   `json:"icon"`
	Text    string   `json:"text,omitempty"`
	Details []Detail `json:"details,omitempty"`
}

// Plain renders the line as unstyled text.
func (l DisplayLine) Plain() string {
	return l.format(l.Title, Detail.Plain)
}

// Markdown renders the line with the title in bold.
func (l DisplayLine) Markdown() string {
	return l.format("**"+l.Title+"**", Detail.Markdown)
}

func (l DisplayLine) format(title string, detail func(Detail) string) string {
	parts := make([]string, 0, len(l.Details))
	for _, d := range l.Details {
		parts = append(parts, detail(d))
	}
	joined := strings.Join(parts, ", ")

	var b strings.Builder
	b.WriteString(l.Icon)
	b.WriteString(" ")
	b.WriteString(title)
	switch l.Kind {
	case KindUpdate:
		b.WriteString(": ")
		b.WriteString(joined)
	case KindCompleted:
		b.WriteString(" ")
		b.WriteString(l.Text)
		if joined != "" {
			b.WriteString(" (")
			b.WriteString(joined)
			b.WriteString(")")
		}
	default:
		b.WriteString(" ")
		b.WriteString(l.Text)
	}
	return b.String()
}

// ListView renders report as ordered display lines: new entries first, then updates.
func ListView(report domain.DiffReport, locale string) []DisplayLine {
	msg := catalogFor(locale)
	lines := make([]DisplayLine, 0, len(report.NewEntries)+len(report.Updates))
	for _, item := range report.NewEntries {
		lines = append(lines, newEntryLine(item, msg))
	}
	for _, update := range report.Updates {
		lines = append(lines, updateLine(update, msg))
	}
	return lines
}

// Summary renders report as markdown lines joined by newlines.
func Summary(report domain.DiffReport, locale string) string {
	lines := ListView(report, locale)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.Markdown())
	}
	return strings.Join(out, "\n")
}

// PlainLines renders report as unstyled text lines.
func PlainLines(report domain.DiffReport, locale string) []string {
	lines := ListView(report, locale)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.Plain())
	}
	return out
}

func newEntryLine(item domain.CanonicalItem, msg messages) DisplayLine {
	line := DisplayLine{Kind: KindNew, ItemID: item.ID, Title: item.Title}
	switch item.Status {
	case domain.StatusCompleted:
		line.Icon, line.Text = IconCompleted, msg.completed
	case domain.StatusWatching:
		line.Icon, line.Text = IconWatching, msg.watching
	case domain.StatusPlanToWatch:
		line.Icon, line.Text = IconPlanToWatch, msg.planToWatch
	default:
		line.Icon, line.Text = IconAdded, msg.added+" ("+string(item.Status)+")."
	}
	return line
}

func updateLine(update domain.UpdateEntry, msg messages) DisplayLine {
	line := DisplayLine{
		Kind:    KindUpdate,
		ItemID:  update.Item.ID,
		Title:   update.Item.Title,
		Icon:    IconUpdated,
		Details: make([]Detail, 0, len(update.Changes)),
	}
	for _, change := range update.Changes {
		line.Details = append(line.Details, changeDetail(change, msg))
	}
	if update.Completed() {
		line.Kind, line.Icon, line.Text = KindCompleted, IconCompleted, msg.completed
	}
	return line
}

func changeDetail(change domain.ChangeRecord, msg messages) Detail {
	switch change.Field {
	case domain.FieldEpisodesWatched:
		return Detail{Label: msg.episode, Old: change.OldValue.String(), New: change.NewValue.String()}
	case domain.FieldScore:
		return Detail{Label: msg.score, Old: scoreText(change.OldValue), New: scoreText(change.NewValue)}
	case domain.FieldStatus:
		return Detail{Label: msg.status, Old: change.OldValue.String(), New: change.NewValue.String()}
	case domain.FieldMetadata:
		return Detail{Label: msg.metadata}
	default:
		return Detail{Label: string(change.Field), Old: change.OldValue.String(), New: change.NewValue.String()}
	}
}

// scoreText renders an unrated (0) or absent score as a dash.
func scoreText(v domain.ChangeValue) string {
	if n, ok := v.Int(); ok && n != 0 {
		return v.String()
	}
	if s := v.String(); s != "" && s != "0" {
		return s
	}
	return "-"
}
