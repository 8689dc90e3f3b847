// Package prompt renders context blocks handed to a chat assistant.
package prompt

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/render"
)

// DefaultPlanLimit caps the plan-to-watch prompt when no limit is given.
const DefaultPlanLimit = 50

// maxHistoryLines caps the recent-activity block of the context prompt.
const maxHistoryLines = 15

// ContextInput carries the stored lists used by ContextPrompt.
type ContextInput struct {
	Watching  []domain.CanonicalItem
	Favorites []domain.CanonicalItem
	History   []domain.CanonicalItem
}

func isTurkish(locale string) bool {
	return render.ResolveLocale(locale, render.LocaleEnglish) == render.LocaleTurkish
}

// DiffPrompt wraps a report summary with memory-update instructions.
func DiffPrompt(summary, locale string) string {
	languageLine := "- **OUTPUT LANGUAGE:** ENGLISH. Act like an English Nakama."
	if isTurkish(locale) {
		languageLine = "- **OUTPUT LANGUAGE:** TURKISH (Türkçe). Act like a Turkish Nakama."
	}

	var b strings.Builder
	b.WriteString("--- 🛡️ HIDDEN SYSTEM CONTEXT (SHADOW MODE) ---\n")
	b.WriteString("[System Notification: User updated MyAnimeList data.]\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n⚙️ **INSTRUCTIONS:**\n")
	b.WriteString("1. Update your memory with these changes.\n")
	b.WriteString("2. This is real data, take precedence over old memory.\n")
	b.WriteString(languageLine)
	b.WriteString("\n--- END OF CONTEXT ---")
	return b.String()
}

// ContextPrompt renders the full profile block: watching list, taste
// references, and recent activity deduplicated by franchise.
func ContextPrompt(in ContextInput, locale string) string {
	languageLines := []string{
		"- **OUTPUT LANGUAGE:** ENGLISH.",
		`- **TONE:** Use casual anime community slang (e.g., "Goated", "Trash", "Hype", "Feels").`,
		`- **STYLE:** Act like an English-speaking "Nakama" (Close friend).`,
	}
	if isTurkish(locale) {
		languageLines = []string{
			"- **OUTPUT LANGUAGE:** TURKISH (Türkçe).",
			`- **TONE:** Use authentic Turkish anime community slang (e.g., "Efsane", "Çöp", "Hype", "Duygu sömürüsü").`,
			`- **STYLE:** Act like a Turkish "Nakama" (Close friend).`,
		}
	}

	watching := make([]string, 0, len(in.Watching))
	for _, item := range in.Watching {
		watching = append(watching, fmt.Sprintf("- %s: Ep %d (Score: %s)", item.Title, item.EpisodesWatched, scoreOrDash(item.Score)))
	}

	favorites := make([]string, 0, len(in.Favorites))
	for _, item := range in.Favorites {
		title := item.Title
		if title == "" {
			title = "Unknown"
		}
		// Favorites always carry a list status, so the raw score is printed.
		favorites = append(favorites, fmt.Sprintf("- %s (Score: %d ⭐)", title, item.Score))
	}

	var b strings.Builder
	b.WriteString("--- 🛡️ HIDDEN SYSTEM CONTEXT (SHADOW MODE) ---\n")
	b.WriteString("[System Notification: Live MyAnimeList Data Injected]\n\n")
	b.WriteString("👤 **USER PROFILE:**\n\n")
	b.WriteString("▶️ **CURRENTLY WATCHING:**\n")
	b.WriteString(strings.Join(watching, "\n"))
	b.WriteString("\n\n🏆 **TASTE REFERENCES (Top Rated):**\n")
	b.WriteString(strings.Join(favorites, "\n"))
	b.WriteString("\n*(Note: Use these to understand the user's taste palette.)*\n\n")
	b.WriteString("🕒 **RECENT ACTIVITY:**\n")
	b.WriteString(strings.Join(historyLines(in.History), "\n"))
	b.WriteString("\n\n⚙️ **MANDATORY INSTRUCTIONS:**\n")
	b.WriteString("1. **Context Integration:** Merge this data with your existing memory. This is the single source of truth.\n")
	b.WriteString("2. **Memory Update:** If there are conflicts with previous data (e.g., episode counts), **overwrite** with this new data.\n")
	b.WriteString("3. **Context Preservation:** Do NOT delete personal details or chat history the user shared previously. Only update anime data.\n")
	b.WriteString("4. **Spoiler Shield:** NEVER discuss events beyond the \"Episodes Watched\" count.\n")
	b.WriteString(strings.Join(languageLines, "\n"))
	b.WriteString("\n\n--- END OF CONTEXT (Please reply to the user's message above) ---")
	return b.String()
}

// historyLines keeps the first entry per franchise, up to maxHistoryLines.
func historyLines(history []domain.CanonicalItem) []string {
	seen := make(map[string]struct{}, len(history))
	lines := make([]string, 0, min(len(history), maxHistoryLines))
	for _, item := range history {
		if len(lines) == maxHistoryLines {
			break
		}
		franchise := FranchiseTitle(item.Title)
		if _, ok := seen[franchise]; ok {
			continue
		}
		seen[franchise] = struct{}{}

		date := item.UpdatedAtFormatted
		if date == "" {
			date = "??.??.????"
		}
		line := fmt.Sprintf("- %s [%s]: %s", item.Title, date, item.Status)
		if item.Score > 0 {
			line += fmt.Sprintf(" (Score: %d)", item.Score)
		}
		lines = append(lines, line)
	}
	return lines
}

// FranchiseTitle trims season and part suffixes so sequels group together.
func FranchiseTitle(title string) string {
	for _, sep := range []string{":", " Season", " Part"} {
		title, _, _ = strings.Cut(title, sep)
	}
	return strings.TrimSpace(title)
}

// PlanToWatchPrompt renders plan-to-watch entries sorted by mean rating,
// highest first, truncated to limit. A limit <= 0 uses DefaultPlanLimit.
func PlanToWatchPrompt(items []domain.CanonicalItem, limit int, locale string) string {
	turkish := isTurkish(locale)
	if len(items) == 0 {
		if turkish {
			return "Planlanmış anime bulunamadı."
		}
		return "No planned anime found."
	}
	if limit <= 0 {
		limit = DefaultPlanLimit
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b domain.CanonicalItem) int {
		switch {
		case a.MeanRating > b.MeanRating:
			return -1
		case a.MeanRating < b.MeanRating:
			return 1
		default:
			return 0
		}
	})
	sorted = sorted[:min(limit, len(sorted))]

	lines := make([]string, 0, len(sorted))
	for _, item := range sorted {
		parts := []string{"-", item.Title}
		if item.MediaType != "" {
			parts = append(parts, "["+strings.ToUpper(item.MediaType)+"]")
		}
		if item.MeanRating > 0 {
			parts = append(parts, "(Score: "+strconv.FormatFloat(item.MeanRating, 'f', -1, 64)+")")
		}
		lines = append(lines, strings.Join(parts, " "))
	}

	languageLines := []string{
		"- **OUTPUT LANGUAGE:** ENGLISH.",
		"- **TONE:** Enthusiastic, encouraging.",
		`- **STYLE:** Act like an English-speaking "Nakama".`,
	}
	if turkish {
		languageLines = []string{
			"- **OUTPUT LANGUAGE:** TURKISH (Türkçe).",
			"- **TONE:** Enthusiastic, encouraging.",
			`- **STYLE:** Act like a Turkish "Nakama".`,
		}
	}

	var b strings.Builder
	b.WriteString("--- 📜 PLANNED ANIME (PLAN TO WATCH) ---\n")
	b.WriteString("[SYSTEM NOTIFICATION: User shared their plan to watch list.]\n")
	fmt.Fprintf(&b, "(Top %d highest rated out of %d total)\n\n", len(sorted), len(items))
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n⚙️ **INSTRUCTIONS:**\n")
	b.WriteString("This list contains series the user has *not watched yet* but is interested in.\n")
	b.WriteString("1. If you recommend something from this list, say \"It's already in your plan, start it now!\".\n")
	b.WriteString("2. Analyze the user's taste based on genres here.\n")
	b.WriteString(strings.Join(languageLines, "\n"))
	b.WriteString("\n--- END OF LIST ---")
	return b.String()
}

// Compose appends a context block to the user's message.
func Compose(userMessage, block string) string {
	return userMessage + "\n\n" + block
}

func scoreOrDash(score int) string {
	if score > 0 {
		return strconv.Itoa(score)
	}
	return "-"
}
