package tui

import (
	"strings"
	"time"

	"github.com/hylla/animebridge/internal/render"
)

type Option func(*Model)

// ClipboardWriter copies text to the system clipboard.
type ClipboardWriter func(string) error

// WithLocale sets the locale used for list lines.
func WithLocale(locale string) Option {
	return func(m *Model) {
		if strings.TrimSpace(locale) != "" {
			m.locale = render.ResolveLocale(locale, render.LocaleEnglish)
		}
	}
}

// WithClipboard replaces the clipboard writer used after consuming a report.
func WithClipboard(write ClipboardWriter) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithPollInterval enables periodic background syncs.
func WithPollInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}
