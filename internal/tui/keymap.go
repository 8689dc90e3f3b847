package tui

import (
	"strings"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit           key.Binding
	reload         key.Binding
	toggleHelp     key.Binding
	moveUp         key.Binding
	moveDown       key.Binding
	sync           key.Binding
	forceSync      key.Binding
	consume        key.Binding
	toggleMarkdown key.Binding
}

// KeyConfig overrides default bindings. Empty fields keep the default.
type KeyConfig struct {
	Sync      string
	ForceSync string
	Consume   string
	Markdown  string
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "line up")),
		moveDown:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "line down")),
		sync:           key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		forceSync:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "force sync")),
		consume:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "consume + copy")),
		toggleMarkdown: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "markdown view")),
	}
}

// applyConfig applies configured overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.sync, cfg.Sync, "s", "sync")
	configureBinding(&k.forceSync, cfg.ForceSync, "f", "force sync")
	configureBinding(&k.consume, cfg.Consume, "c", "consume + copy")
	configureBinding(&k.toggleMarkdown, cfg.Markdown, "m", "markdown view")
}

// configureBinding rebinds b to raw, falling back when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, helpKey := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(helpKey, desc)
}

// parseBindingKeys returns key matchers and help text for one configured key.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		lower := strings.ToLower(raw)
		if lower != raw {
			return []string{raw, "shift+" + lower}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.sync, k.consume, k.toggleMarkdown, k.toggleHelp, k.quit}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.sync, k.forceSync, k.consume, k.reload},
		{k.moveUp, k.moveDown, k.toggleMarkdown},
		{k.toggleHelp, k.quit},
	}
}
