package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// Shimmer animation for the STEPDECK logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "STEPDECK" as a slow wave from deep teal
// (#12343b) to bright aqua (#5eead4).
func renderShimmerLogo(frame int) string {
	const text = "STEPDECK"
	n := len(text)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)
		b = b*0.75 + math.Sin(t*0.035)*0.12 + 0.18
		b = math.Max(0.05, math.Min(1, b))

		r := clampByte(18 + b*(94-18))
		g := clampByte(52 + b*(234-52))
		bl := clampByte(59 + b*(212-59))
		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		out.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(string(text[i])))
		if i < n-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base styles
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e4e4ec")).Bold(true)
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0c4d0"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#505868"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2dd4bf"))

	// Help bar
	helpKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0"))
	helpLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#505868"))

	// Status feedback
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06060"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f0944a"))
	dirtyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#facc15")).Bold(true)

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e1e2a"))

	inputPromptStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2dd4bf")).Bold(true)
	inputPlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#343c4a"))

	// Quiz overlay
	quizBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2dd4bf")).
			Padding(0, 2)

	kindColors = map[domain.ShapeKind]lipgloss.Color{
		domain.KindRectangle: lipgloss.Color("#60a0e0"),
		domain.KindEllipse:   lipgloss.Color("#b080d0"),
		domain.KindTextBox:   lipgloss.Color("#d4a844"),
		domain.KindImage:     lipgloss.Color("#3ecce4"),
	}
)

// KindStyle returns a bold style colored for an element kind.
func KindStyle(k domain.ShapeKind) lipgloss.Style {
	if c, ok := kindColors[k]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#606878")).Bold(true)
}

// helpEntry renders a key + label pair for the help bar.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpSection is one group of key bindings in the help overlay.
type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"library", [][2]string{
		{"j/k", "move"},
		{"enter", "play project"},
		{"e", "edit project"},
		{"n", "new project"},
		{"d", "delete project"},
		{"c", "copy project id"},
		{"r", "refresh"},
	}},
	{"player", [][2]string{
		{"space/→", "next step"},
		{"←", "undo step"},
		{"]/[", "next/previous slide"},
		{"click", "activate element"},
		{"p", "play/pause video"},
		{"0", "rewind video"},
		{"x/X", "export slide to PNG (and open)"},
	}},
	{"quiz", [][2]string{
		{"j/k", "choose"},
		{"space", "select option"},
		{"enter", "submit / continue"},
		{"h/l", "cycle match, x clears"},
		{"J/K", "reorder item"},
		{"shift+tab", "previous question"},
		{"c", "copy results"},
	}},
	{"editor", [][2]string{
		{"tab", "select element"},
		{"hjkl", "move (HJKL: 50px)"},
		{"+/-", "resize"},
		{"a/o/t", "add rectangle/ellipse/text"},
		{"I/B", "import image / background"},
		{"b", "cycle background color"},
		{"i", "edit text"},
		{"D", "duplicate"},
		{"x", "delete element"},
		{"s", "toggle in sequence"},
		{"N/X", "add/delete slide"},
		{"y", "copy element JSON"},
		{"ctrl+s", "save"},
	}},
}

// helpView renders the key binding overlay.
func helpView() string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#2dd4bf")).
		Bold(true).
		Render("S T E P D E C K")
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	keyStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	var b strings.Builder
	b.WriteString("\n  " + title + "\n")
	for _, s := range helpSections {
		b.WriteString("\n  " + sectionStyle.Render(s.title) + "\n")
		for _, k := range s.keys {
			fmt.Fprintf(&b, "    %s  %s\n", keyStyle.Render(fmt.Sprintf("%-10s", k[0])), descStyle.Render(k[1]))
		}
	}
	return b.String()
}
