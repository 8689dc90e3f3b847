package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
)

// TestParseBindingKeys verifies key parsing behavior for configured overrides.
func TestParseBindingKeys(t *testing.T) {
	t.Run("space aliases", func(t *testing.T) {
		keys, help := parseBindingKeys("space", ".")
		if len(keys) != 2 || keys[0] != " " || keys[1] != "space" {
			t.Fatalf("unexpected parsed space keys %#v", keys)
		}
		if help != "space" {
			t.Fatalf("unexpected space help text %q", help)
		}
	})

	t.Run("uppercase rune includes shift alias", func(t *testing.T) {
		keys, help := parseBindingKeys("Z", "z")
		if len(keys) != 2 || keys[0] != "Z" || keys[1] != "shift+z" {
			t.Fatalf("unexpected uppercase parsed keys %#v", keys)
		}
		if help != "Z" {
			t.Fatalf("unexpected uppercase help text %q", help)
		}
	})

	t.Run("multi rune lowercases key matcher", func(t *testing.T) {
		keys, help := parseBindingKeys("Ctrl+R", "r")
		if len(keys) != 1 || keys[0] != "ctrl+r" {
			t.Fatalf("unexpected multi-rune parsed keys %#v", keys)
		}
		if help != "Ctrl+R" {
			t.Fatalf("unexpected multi-rune help text %q", help)
		}
	})

	t.Run("blank uses fallback", func(t *testing.T) {
		keys, help := parseBindingKeys("", "x")
		if len(keys) != 1 || keys[0] != "x" {
			t.Fatalf("unexpected fallback parsed keys %#v", keys)
		}
		if help != "x" {
			t.Fatalf("unexpected fallback help text %q", help)
		}
	})
}

// TestConfigureBinding verifies binding override application behavior.
func TestConfigureBinding(t *testing.T) {
	b := key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "old"))
	configureBinding(&b, "y", "s", "sync")
	keys := b.Keys()
	if len(keys) != 1 || keys[0] != "y" {
		t.Fatalf("unexpected configured keys %#v", keys)
	}
	if b.Help().Key != "y" || b.Help().Desc != "sync" {
		t.Fatalf("unexpected configured help %#v", b.Help())
	}
}

// TestKeyMapApplyConfig verifies dynamic key map override behavior.
func TestKeyMapApplyConfig(t *testing.T) {
	k := newKeyMap()
	k.applyConfig(KeyConfig{
		Sync:    "u",
		Consume: "enter",
	})

	assertKeys := func(name string, binding key.Binding, expected ...string) {
		t.Helper()
		got := binding.Keys()
		if len(got) != len(expected) {
			t.Fatalf("%s: expected %d keys, got %#v", name, len(expected), got)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("%s: expected %#v, got %#v", name, expected, got)
			}
		}
	}
	assertKeys("sync", k.sync, "u")
	assertKeys("consume", k.consume, "enter")
	assertKeys("force sync", k.forceSync, "f")
	assertKeys("markdown", k.toggleMarkdown, "m")
}

// TestKeyMapHelpGroups verifies every action appears in full help.
func TestKeyMapHelpGroups(t *testing.T) {
	k := newKeyMap()
	count := 0
	for _, group := range k.FullHelp() {
		count += len(group)
	}
	if count != 9 {
		t.Fatalf("expected 9 bindings in full help, got %d", count)
	}
	if len(k.ShortHelp()) == 0 {
		t.Fatal("expected short help bindings")
	}
}
