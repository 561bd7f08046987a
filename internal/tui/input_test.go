package tui

import (
	"strings"
	"testing"
)

func TestEditRune(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"append to empty", "", "a", "a"},
		{"append letter", "exi", "t", "exit"},
		{"append space key", "fire", " ", "fire "},
		{"space by name", "fire", "space", "fire "},
		{"append accented", "caf", "é", "café"},
		{"append emoji", "ok", "\U0001f525", "ok\U0001f525"},
		{"backspace", "exit", "backspace", "exi"},
		{"backspace multibyte", "café", "backspace", "caf"},
		{"backspace emoji", "ok\U0001f525", "backspace", "ok"},
		{"backspace empty", "", "backspace", ""},
		{"ctrl+w drops last word", "fire exit route", "ctrl+w", "fire exit "},
		{"ctrl+w trailing spaces", "fire exit  ", "ctrl+w", "fire "},
		{"ctrl+w single word", "fire", "ctrl+w", ""},
		{"ctrl+u clears", "fire exit", "ctrl+u", ""},
		{"empty key", "fire", "", "fire"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := editRune(tt.start, tt.key, maxTextLen); got != tt.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tt.start, tt.key, got, tt.want)
			}
		})
	}
}

func TestEditRuneIgnoresNamedKeys(t *testing.T) {
	for _, key := range []string{
		"enter", "esc", "up", "down", "left", "right", "tab", "shift+tab",
		"ctrl+c", "ctrl+s", "alt+enter", "f1", "pgup", "home", "[pasted text]",
	} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("hello", key, maxTextLen); got != "hello" {
				t.Errorf("editRune(hello, %q) = %q, want unchanged", key, got)
			}
		})
	}
}

func TestEditRuneLimit(t *testing.T) {
	full := strings.Repeat("é", maxEmailLen)
	if got := editRune(full, "x", maxEmailLen); got != full {
		t.Errorf("append past limit grew the field to %d runes", len([]rune(got)))
	}
	if got := editRune(full[:len(full)-2], "x", maxEmailLen); !strings.HasSuffix(got, "x") {
		t.Error("append below limit rejected")
	}
	if got := editRune(full, "backspace", maxEmailLen); len([]rune(got)) != maxEmailLen-1 {
		t.Errorf("backspace at limit left %d runes", len([]rune(got)))
	}
}

func TestRenderInputPlaceholder(t *testing.T) {
	empty := renderInput("email: ", "", "you@example.com", 0)
	if !strings.Contains(empty, "you@example.com") {
		t.Errorf("empty input should show placeholder: %q", empty)
	}
	filled := renderInput("email: ", "ann@example.com", "you@example.com", 0)
	if strings.Contains(filled, "you@example.com") {
		t.Errorf("filled input should hide placeholder: %q", filled)
	}
	if !strings.Contains(filled, "ann@example.com") {
		t.Errorf("filled input missing text: %q", filled)
	}
}

func TestRenderInputCursorBlinks(t *testing.T) {
	on := renderInput("> ", "abc", "", 0)
	off := renderInput("> ", "abc", "", 4)
	if !strings.Contains(on, "█") {
		t.Errorf("frame 0 should draw the cursor block: %q", on)
	}
	if strings.Contains(off, "█") {
		t.Errorf("frame 4 should hide the cursor block: %q", off)
	}
}
