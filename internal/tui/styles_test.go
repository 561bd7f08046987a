package tui

import (
	"strings"
	"testing"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

func TestKindStyleKnownKinds(t *testing.T) {
	kinds := []domain.ShapeKind{domain.KindRectangle, domain.KindEllipse, domain.KindTextBox, domain.KindImage}
	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			rendered := KindStyle(k).Render(string(k))
			if !strings.Contains(rendered, string(k)) {
				t.Errorf("KindStyle(%q).Render = %q, want to contain %q", k, rendered, k)
			}
		})
	}
}

func TestKindStyleUnknownFallback(t *testing.T) {
	rendered := KindStyle("hexagon").Render("hexagon")
	if !strings.Contains(rendered, "hexagon") {
		t.Errorf("KindStyle fallback did not render text: %q", rendered)
	}
}

func TestHelpEntryFormat(t *testing.T) {
	result := helpEntry("q", "quit")
	if !strings.Contains(result, "q") {
		t.Errorf("helpEntry('q','quit') does not contain key 'q': %q", result)
	}
	if !strings.Contains(result, "quit") {
		t.Errorf("helpEntry('q','quit') does not contain label 'quit': %q", result)
	}
}

func TestHelpEntryMultipleKeys(t *testing.T) {
	tests := []struct {
		key   string
		label string
	}{
		{"j/k", "nav"},
		{"enter", "play"},
		{"esc", "cancel"},
		{"ctrl+s", "save"},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			result := helpEntry(tc.key, tc.label)
			if !strings.Contains(result, tc.key) {
				t.Errorf("helpEntry(%q, %q) missing key", tc.key, tc.label)
			}
			if !strings.Contains(result, tc.label) {
				t.Errorf("helpEntry(%q, %q) missing label", tc.key, tc.label)
			}
		})
	}
}

func TestShimmerLogoKeepsLetters(t *testing.T) {
	for _, frame := range []int{0, 7, 100} {
		logo := renderShimmerLogo(frame)
		for _, r := range "STEPDECK" {
			if !strings.ContainsRune(logo, r) {
				t.Errorf("frame %d: logo %q missing %q", frame, logo, r)
			}
		}
	}
}

func TestHelpViewListsEverySection(t *testing.T) {
	out := helpView()
	for _, s := range helpSections {
		if !strings.Contains(out, s.title) {
			t.Errorf("help view missing section %q", s.title)
		}
		for _, k := range s.keys {
			if !strings.Contains(out, k[1]) {
				t.Errorf("help view missing %q in %s", k[1], s.title)
			}
		}
	}
}
