package render

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported locale codes. English is the default variant.
const (
	LocaleEnglish = "en"
	LocaleTurkish = "tr"
)

// LocaleAuto defers locale choice to the caller-provided fallback, usually $LANG.
const LocaleAuto = "auto"

// Locales lists supported locale codes, default first.
func Locales() []string {
	return []string{LocaleEnglish, LocaleTurkish}
}

// ResolveLocale maps a requested locale to a supported code by primary language
// subtag. "auto" and empty requests use fallback; unknown tags use LocaleEnglish.
func ResolveLocale(preferred, fallback string) string {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" || strings.EqualFold(preferred, LocaleAuto) {
		preferred = fallback
	}
	tag, err := language.Parse(cleanPOSIXLocale(preferred))
	if err != nil {
		return LocaleEnglish
	}
	base, _ := tag.Base()
	switch base.String() {
	case LocaleTurkish:
		return LocaleTurkish
	default:
		return LocaleEnglish
	}
}

// cleanPOSIXLocale converts values such as "tr_TR.UTF-8@euro" into BCP 47 form.
func cleanPOSIXLocale(raw string) string {
	if idx := strings.IndexAny(raw, ".@"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
}

// messages holds one locale's template strings.
type messages struct {
	completed   string
	watching    string
	planToWatch string
	added       string
	episode     string
	score       string
	status      string
	metadata    string
}

var catalogs = map[string]messages{
	LocaleEnglish: {
		completed:   "successfully completed!",
		watching:    "started watching.",
		planToWatch: "added to plan to watch.",
		added:       "added to list",
		episode:     "Ep",
		score:       "Score",
		status:      "Status",
		metadata:    "Metadata updated",
	},
	LocaleTurkish: {
		completed:   "başarıyla tamamlandı!",
		watching:    "izlenmeye başlandı.",
		planToWatch: "izlenecekler listesine eklendi.",
		added:       "listeye eklendi",
		episode:     "Bölüm",
		score:       "Puan",
		status:      "Durum",
		metadata:    "Bilgiler güncellendi",
	},
}

// catalogFor returns templates for locale, falling back to English.
func catalogFor(locale string) messages {
	if m, ok := catalogs[ResolveLocale(locale, LocaleEnglish)]; ok {
		return m
	}
	return catalogs[LocaleEnglish]
}
